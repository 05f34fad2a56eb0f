package driver

import (
	"time"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/command"
	"github.com/danmuck/armctl/internal/pipeline"
	"github.com/danmuck/armctl/internal/state"
	"github.com/google/uuid"
)

// Config tunes one driver.
type Config struct {
	// SessionID tags logs, metrics and recordings. Zero picks a random id.
	SessionID uuid.UUID

	Pipeline pipeline.Config

	ReliableCapacity int
	// ReliableRetries is the enqueue attempts SendReliable makes before it
	// reports ErrChannelFull.
	ReliableRetries int
	Backoff         command.BackoffConfig
	// SustainedFullLimit is how many consecutive ErrChannelFull results are
	// tolerated before the pipeline is failed. Zero disables escalation.
	SustainedFullLimit int

	GroupTimeout time.Duration
	Clock        state.Clock

	// SafeStop sends the quick-stop frame when the driver closes.
	SafeStop bool

	// Tap sees every received non-echo frame on the RX goroutine.
	Tap func(can.Frame)
}

func DefaultConfig() Config {
	return Config{
		Pipeline:           pipeline.DefaultConfig(),
		ReliableCapacity:   command.DefaultReliableCapacity,
		ReliableRetries:    20,
		Backoff:            command.DefaultBackoff(),
		SustainedFullLimit: 50,
		GroupTimeout:       state.DefaultGroupTimeout,
		SafeStop:           true,
	}
}
