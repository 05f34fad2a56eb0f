package pipeline

import (
	"errors"
	"fmt"

	"github.com/danmuck/armctl/internal/transport"
)

func (p *Pipeline) rxLoop() {
	defer p.wg.Done()
	defer p.rxAlive.Store(false)

	m := p.deps.Metrics
	for p.running.Load() {
		f, err := p.deps.Rx.Receive(p.cfg.RxTimeout)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				m.Timeout()
				continue
			}
			m.DeviceError()
			p.Fail(fmt.Errorf("rx: %w", err))
			return
		}
		m.RxReceived()
		if f.Validate() != nil {
			m.RxInvalid()
			continue
		}
		if p.echo.seen(f) {
			m.RxFiltered()
			continue
		}
		if p.deps.Tap != nil {
			p.deps.Tap(f)
		}
		if p.deps.Sink.Publish(f) {
			m.RxValid()
		}
	}
}
