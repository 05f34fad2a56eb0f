package pipeline

import (
	"time"

	"github.com/danmuck/armctl/internal/can"
)

// Config holds loop timing. Zero fields take DefaultConfig values.
type Config struct {
	RxTimeout time.Duration
	TxTimeout time.Duration
	IdleSleep time.Duration
	// SendRetryLimit is how many consecutive timeouts one reliable frame
	// may take before the pipeline fails.
	SendRetryLimit int
	// SafeFrame is written once after both loops exit. Nil disables it.
	SafeFrame *can.Frame
	// SafeAttempts bounds retries of the safe frame on timeout.
	SafeAttempts int
}

func DefaultConfig() Config {
	return Config{
		RxTimeout:      2 * time.Millisecond,
		TxTimeout:      5 * time.Millisecond,
		IdleSleep:      50 * time.Microsecond,
		SendRetryLimit: 200,
		SafeAttempts:   3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RxTimeout <= 0 {
		c.RxTimeout = d.RxTimeout
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = d.TxTimeout
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = d.IdleSleep
	}
	if c.SendRetryLimit <= 0 {
		c.SendRetryLimit = d.SendRetryLimit
	}
	if c.SafeAttempts <= 0 {
		c.SafeAttempts = d.SafeAttempts
	}
	return c
}
