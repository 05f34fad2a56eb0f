package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/command"
	"github.com/danmuck/armctl/internal/transport"
)

type sendResult uint8

const (
	sent sendResult = iota
	timedOut
	fatal
)

func (p *Pipeline) txLoop() {
	defer p.wg.Done()
	defer p.txAlive.Store(false)
	defer close(p.txExit)

	var (
		batch    command.Batch
		inflight can.Frame
		held     bool
		retries  int
	)
	ch := p.deps.Channel
	for p.running.Load() {
		if !held {
			prio, ok := ch.Next(&batch)
			if !ok {
				time.Sleep(p.cfg.IdleSleep)
				continue
			}
			if prio == command.RealtimeControl {
				if !p.sendBatch(&batch) {
					break
				}
				continue
			}
			inflight, held, retries = batch.Frames()[0], true, 0
		} else if ch.Mailbox.Take(&batch) {
			// A held reliable frame never delays realtime traffic.
			if !p.sendBatch(&batch) {
				break
			}
			continue
		}

		switch p.transmit(inflight) {
		case sent:
			held = false
		case timedOut:
			retries++
			if retries >= p.cfg.SendRetryLimit {
				p.Fail(fmt.Errorf("tx 0x%X after %d attempts: %w", inflight.ID, retries, ErrSendStalled))
			}
		case fatal:
		}
	}
	p.abandonReliable(held)
}

// sendBatch writes one realtime batch. A timeout drops the rest of the
// batch; a newer command supersedes it anyway.
func (p *Pipeline) sendBatch(b *command.Batch) bool {
	for _, f := range b.Frames() {
		switch p.transmit(f) {
		case timedOut:
			return true
		case fatal:
			return false
		}
	}
	return true
}

func (p *Pipeline) transmit(f can.Frame) sendResult {
	p.echo.mark(f)
	err := p.deps.Tx.Send(f, p.cfg.TxTimeout)
	if err == nil {
		p.deps.Metrics.TxSent()
		return sent
	}
	if errors.Is(err, transport.ErrTimeout) {
		p.deps.Metrics.Timeout()
		return timedOut
	}
	p.deps.Metrics.DeviceError()
	p.Fail(fmt.Errorf("tx: %w", err))
	return fatal
}

// abandonReliable accounts for reliable frames the loop will never write.
func (p *Pipeline) abandonReliable(held bool) {
	n := p.drainReliable()
	if held {
		p.deps.Metrics.ReliableAbandoned()
		n++
	}
	if n > 0 {
		p.log.Warn().Int("frames", n).Msg("reliable frames abandoned at shutdown")
	}
}

func (p *Pipeline) drainReliable() int {
	n := 0
	for {
		if _, ok := p.deps.Channel.Reliable.Pop(); !ok {
			return n
		}
		p.deps.Metrics.ReliableAbandoned()
		n++
	}
}
