package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/command"
	"github.com/danmuck/armctl/internal/metrics"
	"github.com/danmuck/armctl/internal/transport"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyStarted = errors.New("pipeline: already started")
	// ErrSendStalled wraps transport.ErrTimeout once a reliable frame used up
	// its retry budget.
	ErrSendStalled = fmt.Errorf("pipeline: reliable send stalled: %w", transport.ErrTimeout)
)

// Sink consumes received frames and reports whether the id was known.
type Sink interface {
	Publish(f can.Frame) bool
}

// Deps wires a pipeline to its collaborators.
type Deps struct {
	Rx      transport.Rx
	Tx      transport.Tx
	Sink    Sink
	Channel *command.Channel
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
	// Tap, when set, sees every non-echo frame on the RX goroutine before
	// it is published.
	Tap func(can.Frame)
}

// Health is a point-in-time view of the loops.
type Health struct {
	Running bool
	RxAlive bool
	TxAlive bool
	Err     error
}

type Pipeline struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger
	echo echoFilter

	running atomic.Bool
	started atomic.Bool
	rxAlive atomic.Bool
	txAlive atomic.Bool
	cause   atomic.Pointer[error]

	wg       sync.WaitGroup
	txExit   chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	stopOnce sync.Once
	stopErr  error
}

func New(deps Deps, cfg Config) *Pipeline {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Pipeline{
		cfg:    cfg.withDefaults(),
		deps:   deps,
		log:    deps.Logger.With().Str("component", "pipeline").Logger(),
		done:   make(chan struct{}),
		txExit: make(chan struct{}),
	}
}

// Start launches the RX and TX goroutines.
func (p *Pipeline) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	p.running.Store(true)
	p.rxAlive.Store(true)
	p.txAlive.Store(true)
	p.wg.Add(2)
	go p.rxLoop()
	go p.txLoop()
	p.log.Debug().
		Dur("rx_timeout", p.cfg.RxTimeout).
		Dur("tx_timeout", p.cfg.TxTimeout).
		Dur("idle_sleep", p.cfg.IdleSleep).
		Msg("pipeline started")
	return nil
}

// Fail clears the running flag and records cause. Only the first call
// wins; it reports whether this call was that one.
func (p *Pipeline) Fail(cause error) bool {
	if !p.running.CompareAndSwap(true, false) {
		return false
	}
	p.cause.Store(&cause)
	p.closeDone()
	p.log.Error().Err(cause).Msg("pipeline failed")
	return true
}

// Stop clears the running flag, joins both loops and then writes the safe
// frame. Repeated calls return the first result.
func (p *Pipeline) Stop() error {
	p.stopOnce.Do(func() {
		if p.running.CompareAndSwap(true, false) {
			p.closeDone()
		}
		p.wg.Wait()
		p.stopErr = p.sendSafe()
		p.log.Debug().Err(p.stopErr).Msg("pipeline stopped")
	})
	return p.stopErr
}

// Reclaim waits for the TX loop to exit, then accounts for reliable frames
// enqueued after it drained the queue. Producers call it when an enqueue
// raced with shutdown. It returns how many frames it found.
func (p *Pipeline) Reclaim() int {
	if !p.started.Load() {
		return 0
	}
	<-p.txExit
	return p.drainReliable()
}

func (p *Pipeline) closeDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Done is closed once the running flag is cleared, by failure or Stop.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Err returns the failure cause, or nil after a clean stop.
func (p *Pipeline) Err() error {
	if errp := p.cause.Load(); errp != nil {
		return *errp
	}
	return nil
}

func (p *Pipeline) Health() Health {
	return Health{
		Running: p.running.Load(),
		RxAlive: p.rxAlive.Load(),
		TxAlive: p.txAlive.Load(),
		Err:     p.Err(),
	}
}

func (p *Pipeline) sendSafe() error {
	if p.cfg.SafeFrame == nil || p.deps.Tx == nil {
		return nil
	}
	f := *p.cfg.SafeFrame
	var err error
	for attempt := 0; attempt < p.cfg.SafeAttempts; attempt++ {
		p.echo.mark(f)
		err = p.deps.Tx.Send(f, p.cfg.TxTimeout)
		if err == nil {
			p.deps.Metrics.TxSent()
			p.log.Info().Stringer("frame", f).Msg("safe frame sent")
			return nil
		}
		if transport.IsFatal(err) {
			break
		}
	}
	p.log.Warn().Err(err).Stringer("frame", f).Msg("safe frame not sent")
	return fmt.Errorf("pipeline: safe frame: %w", err)
}
