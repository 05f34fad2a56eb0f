package state

// DefaultChunkLimit caps a chunked value; longer streams are dropped.
const DefaultChunkLimit = 256

// ChunkBuffer accumulates a variable-length value sent as a run of frames.
// The value completes on a NUL byte or on a chunk shorter than a full frame.
type ChunkBuffer struct {
	buf      []byte
	complete bool
	limit    int
}

func NewChunkBuffer(limit int) *ChunkBuffer {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	return &ChunkBuffer{buf: make([]byte, 0, limit), limit: limit}
}

// Append adds one chunk and reports whether the value is now complete. The
// first chunk after a completed value starts a new one.
func (c *ChunkBuffer) Append(chunk []byte, full int) bool {
	if c.complete {
		c.Reset()
	}
	for _, b := range chunk {
		if b == 0 {
			c.complete = true
			return true
		}
		if len(c.buf) == c.limit {
			c.Reset()
			return false
		}
		c.buf = append(c.buf, b)
	}
	if len(chunk) < full {
		c.complete = true
	}
	return c.complete
}

func (c *ChunkBuffer) Complete() bool {
	return c.complete
}

// Bytes returns the accumulated value. It is only stable while Complete.
func (c *ChunkBuffer) Bytes() []byte {
	return c.buf
}

func (c *ChunkBuffer) Reset() {
	c.buf = c.buf[:0]
	c.complete = false
}
