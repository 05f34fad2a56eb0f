package command

import (
	"errors"
	"fmt"

	"github.com/danmuck/armctl/internal/can"
)

// MaxBatch bounds the frames one realtime command may carry. Multi-frame
// targets (joint or pose) overwrite as a unit.
const MaxBatch = 4

var (
	ErrChannelFull   = errors.New("command: reliable channel full")
	ErrEmptyBatch    = errors.New("command: empty batch")
	ErrBatchTooLarge = errors.New("command: batch too large")
)

type Priority uint8

const (
	RealtimeControl Priority = iota
	ReliableCommand
)

func (p Priority) String() string {
	switch p {
	case RealtimeControl:
		return "realtime"
	case ReliableCommand:
		return "reliable"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// Command is one outbound frame tagged with its delivery class.
type Command struct {
	Frame    can.Frame
	Priority Priority
}

func Realtime(f can.Frame) Command { return Command{Frame: f, Priority: RealtimeControl} }
func Reliable(f can.Frame) Command { return Command{Frame: f, Priority: ReliableCommand} }

// Batch is a fixed-capacity group of frames sent back to back.
type Batch struct {
	frames [MaxBatch]can.Frame
	n      int
}

func NewBatch(frames ...can.Frame) (Batch, error) {
	var b Batch
	if len(frames) == 0 {
		return b, ErrEmptyBatch
	}
	if len(frames) > MaxBatch {
		return b, fmt.Errorf("%w: %d frames", ErrBatchTooLarge, len(frames))
	}
	for _, f := range frames {
		if err := f.Validate(); err != nil {
			return Batch{}, err
		}
	}
	b.n = copy(b.frames[:], frames)
	return b, nil
}

func (b *Batch) Frames() []can.Frame {
	return b.frames[:b.n]
}

func (b *Batch) Len() int {
	return b.n
}
