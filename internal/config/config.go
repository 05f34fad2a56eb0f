package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/armctl/internal/driver"
)

const (
	ChannelSocketCAN = "socketcan"
	ChannelSim       = "sim"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Runtime is the full armctl process configuration.
type Runtime struct {
	// Interface names the CAN device, e.g. can0.
	Interface string
	// Channel selects the transport: socketcan or sim.
	Channel     string
	RecordPath  string
	HTTPAddr    string
	CORSOrigins []string
	Heartbeat   time.Duration
	Driver      driver.Config
}

func DefaultRuntime() Runtime {
	return Runtime{
		Interface: "can0",
		Channel:   ChannelSocketCAN,
		HTTPAddr:  "127.0.0.1:7080",
		Heartbeat: 5 * time.Second,
		Driver:    driver.DefaultConfig(),
	}
}

func ValidateRuntime(cfg Runtime) error {
	switch cfg.Channel {
	case ChannelSocketCAN:
		if strings.TrimSpace(cfg.Interface) == "" {
			return fmt.Errorf("%w: interface required for socketcan", ErrInvalidConfig)
		}
	case ChannelSim:
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidConfig, cfg.Channel)
	}
	if cfg.Heartbeat <= 0 {
		return fmt.Errorf("%w: heartbeat must be positive", ErrInvalidConfig)
	}
	p := cfg.Driver.Pipeline
	if p.RxTimeout <= 0 || p.TxTimeout <= 0 || p.IdleSleep <= 0 {
		return fmt.Errorf("%w: rx_timeout, tx_timeout and idle_sleep must be positive", ErrInvalidConfig)
	}
	if cfg.Driver.ReliableCapacity <= 0 {
		return fmt.Errorf("%w: reliable_capacity must be positive", ErrInvalidConfig)
	}
	if cfg.Driver.ReliableRetries <= 0 {
		return fmt.Errorf("%w: reliable_retries must be positive", ErrInvalidConfig)
	}
	if cfg.Driver.SustainedFullLimit < 0 || p.SendRetryLimit <= 0 {
		return fmt.Errorf("%w: retry limits out of range", ErrInvalidConfig)
	}
	if cfg.Driver.GroupTimeout <= 0 {
		return fmt.Errorf("%w: group_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
