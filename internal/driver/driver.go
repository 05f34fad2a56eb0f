package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danmuck/armctl/internal/arm"
	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/command"
	"github.com/danmuck/armctl/internal/metrics"
	"github.com/danmuck/armctl/internal/pipeline"
	"github.com/danmuck/armctl/internal/state"
	"github.com/danmuck/armctl/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Driver is safe for concurrent use by any number of callers.
type Driver struct {
	cfg     Config
	id      uuid.UUID
	log     zerolog.Logger
	adapter transport.Adapter

	state   *arm.State
	channel *command.Channel
	metrics *metrics.Metrics
	pipe    *pipeline.Pipeline

	fullStreak atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// Health is the caller-facing liveness report.
type Health struct {
	Running       bool
	RxAlive       bool
	TxAlive       bool
	Bottleneck    bool
	OverwriteRate float64
	Err           error
}

// Open splits adapter, wires the store and starts both I/O loops.
func Open(adapter transport.Adapter, cfg Config, logger zerolog.Logger) (*Driver, error) {
	if adapter == nil {
		return nil, errors.New("driver: nil adapter")
	}
	d := &Driver{
		cfg:     cfg,
		id:      cfg.SessionID,
		adapter: adapter,
		channel: command.NewChannel(cfg.ReliableCapacity),
		metrics: metrics.New(),
	}
	if d.id == uuid.Nil {
		d.id = uuid.New()
	}
	d.log = logger.With().Str("component", "driver").Str("session", d.id.String()).Logger()

	st, err := arm.NewState(arm.Options{
		GroupTimeout: cfg.GroupTimeout,
		Clock:        cfg.Clock,
		OnDiscard: func(string, state.DiscardReason) {
			d.metrics.GroupDiscarded()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("driver: state: %w", err)
	}
	d.state = st

	pcfg := cfg.Pipeline
	if cfg.SafeStop && pcfg.SafeFrame == nil {
		safe := arm.QuickStop()
		pcfg.SafeFrame = &safe
	}
	rx, tx := adapter.Split()
	d.pipe = pipeline.New(pipeline.Deps{
		Rx:      rx,
		Tx:      tx,
		Sink:    st,
		Channel: d.channel,
		Metrics: d.metrics,
		Logger:  d.log,
		Tap:     cfg.Tap,
	}, pcfg)
	if err := d.pipe.Start(); err != nil {
		return nil, err
	}
	d.log.Info().
		Int("reliable_capacity", d.channel.Reliable.Cap()).
		Bool("safe_stop", pcfg.SafeFrame != nil).
		Msg("driver opened")
	return d, nil
}

func (d *Driver) SessionID() uuid.UUID {
	return d.id
}

// ReadState returns the telemetry store while the pipeline runs. Once it has
// stopped, reads fail with ErrPipelineNotRunning instead of serving the last
// values as current. The store's own readers never block.
func (d *Driver) ReadState() (*arm.State, error) {
	if err := d.checkRunning(); err != nil {
		return nil, err
	}
	return d.state, nil
}

// State returns the store regardless of pipeline state. It is meant for
// inspecting the final values after the driver stopped.
func (d *Driver) State() *arm.State {
	return d.state
}

// Metrics exposes the live counters for exporters.
func (d *Driver) Metrics() *metrics.Metrics {
	return d.metrics
}

func (d *Driver) MetricsSnapshot() metrics.Snapshot {
	return d.metrics.Snapshot()
}

// Done is closed once the pipeline stops for any reason.
func (d *Driver) Done() <-chan struct{} {
	return d.pipe.Done()
}

func (d *Driver) checkRunning() error {
	if d.pipe.Running() {
		return nil
	}
	return notRunning(d.pipe.Err())
}

// Send dispatches cmd by its priority.
func (d *Driver) Send(cmd command.Command) error {
	switch cmd.Priority {
	case command.RealtimeControl:
		return d.SendRealtime(cmd.Frame)
	case command.ReliableCommand:
		return d.SendReliable(cmd.Frame)
	default:
		return fmt.Errorf("driver: unknown priority %s", cmd.Priority)
	}
}

// SendRealtime places f in the mailbox, replacing any unsent command.
func (d *Driver) SendRealtime(f can.Frame) error {
	return d.SendRealtimeBatch(f)
}

// SendRealtimeBatch places frames in the mailbox as one unit.
func (d *Driver) SendRealtimeBatch(frames ...can.Frame) error {
	if err := d.checkRunning(); err != nil {
		return err
	}
	b, err := command.NewBatch(frames...)
	if err != nil {
		return err
	}
	d.metrics.TxAccepted()
	if d.channel.Mailbox.Put(b) {
		d.metrics.TxOverwrite()
	}
	return nil
}

// SendReliable enqueues f for in-order delivery, waiting with backoff while
// the queue is full.
func (d *Driver) SendReliable(f can.Frame) error {
	return d.SendReliableContext(context.Background(), f)
}

func (d *Driver) SendReliableContext(ctx context.Context, f can.Frame) error {
	if err := d.checkRunning(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	policy := command.RetryPolicy{Attempts: d.cfg.ReliableRetries, Backoff: d.cfg.Backoff}
	err := d.channel.Reliable.Push(ctx, f, policy, d.checkRunning)
	if err == nil {
		err = d.confirmEnqueued()
	}
	return d.reliableResult(err)
}

// TrySendReliable makes exactly one enqueue attempt.
func (d *Driver) TrySendReliable(f can.Frame) error {
	if err := d.checkRunning(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	err := d.channel.Reliable.TryPush(f)
	if err == nil {
		err = d.confirmEnqueued()
	}
	return d.reliableResult(err)
}

// confirmEnqueued catches an enqueue that raced with shutdown. The TX loop
// may already have drained the queue, so the frame is reclaimed and the
// caller told it was not accepted.
func (d *Driver) confirmEnqueued() error {
	if d.pipe.Running() {
		return nil
	}
	if n := d.pipe.Reclaim(); n > 0 {
		d.log.Warn().Int("frames", n).Msg("reliable frames enqueued after shutdown")
	}
	return notRunning(d.pipe.Err())
}

func (d *Driver) reliableResult(err error) error {
	if err == nil {
		d.fullStreak.Store(0)
		d.metrics.TxAccepted()
		return nil
	}
	if !errors.Is(err, command.ErrChannelFull) {
		return err
	}
	d.metrics.ReliableReject()
	streak := d.fullStreak.Add(1)
	if limit := d.cfg.SustainedFullLimit; limit > 0 && streak > int64(limit) {
		cause := fmt.Errorf("%w: %d consecutive rejections", command.ErrChannelFull, streak)
		if d.pipe.Fail(cause) {
			d.log.Error().Int64("streak", streak).Msg("reliable channel saturated")
		}
	}
	return err
}

// HealthCheck reports loop liveness and the cumulative overwrite rate.
func (d *Driver) HealthCheck() Health {
	h := d.pipe.Health()
	snap := d.metrics.Snapshot()
	return Health{
		Running:       h.Running,
		RxAlive:       h.RxAlive,
		TxAlive:       h.TxAlive,
		Bottleneck:    snap.OverwriteAbnormal(),
		OverwriteRate: snap.OverwriteRate(),
		Err:           h.Err,
	}
}

// Close stops the pipeline, sends the safe frame and closes the adapter.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		stopErr := d.pipe.Stop()
		closeErr := d.adapter.Close()
		d.closeErr = errors.Join(stopErr, closeErr)
		snap := d.metrics.Snapshot()
		d.log.Info().
			Uint64("rx_total", snap.RxTotal).
			Uint64("tx_sent", snap.TxSent).
			Float64("overwrite_rate", snap.OverwriteRate()).
			Err(d.pipe.Err()).
			Msg("driver closed")
	})
	return d.closeErr
}
