package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/danmuck/armctl/internal/can"
)

// echoFilter remembers which ids this side has transmitted so their local
// echoes can be dropped on receive. Standard ids live in a bitset; extended
// ids fall back to a map.
type echoFilter struct {
	std [(can.MaxStandardID + 1) / 64]atomic.Uint64
	ext sync.Map
}

func (e *echoFilter) mark(f can.Frame) {
	if f.Extended {
		e.ext.Store(f.ID, struct{}{})
		return
	}
	if f.ID > can.MaxStandardID {
		return
	}
	w, bit := f.ID/64, uint64(1)<<(f.ID%64)
	for {
		old := e.std[w].Load()
		if old&bit != 0 || e.std[w].CompareAndSwap(old, old|bit) {
			return
		}
	}
}

func (e *echoFilter) seen(f can.Frame) bool {
	if f.Extended {
		_, ok := e.ext.Load(f.ID)
		return ok
	}
	if f.ID > can.MaxStandardID {
		return false
	}
	return e.std[f.ID/64].Load()&(uint64(1)<<(f.ID%64)) != 0
}
