package record

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/danmuck/armctl/internal/can"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	Magic     = "ARMREC"
	Version   = uint16(1)
	HeaderLen = 24
)

var (
	ErrBadMagic           = errors.New("record: bad magic")
	ErrUnsupportedVersion = errors.New("record: unsupported version")
	ErrClosed             = errors.New("record: writer closed")
)

type Header struct {
	Version uint16
	Session uuid.UUID
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderLen)
	copy(buf[0:6], Magic)
	binary.BigEndian.PutUint16(buf[6:8], h.Version)
	copy(buf[8:24], h.Session[:])
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if !bytes.Equal(buf[0:6], []byte(Magic)) {
		return Header{}, ErrBadMagic
	}
	h := Header{Version: binary.BigEndian.Uint16(buf[6:8])}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	copy(h.Session[:], buf[8:24])
	return h, nil
}

// Writer appends frames to a recording. It is safe for one writer goroutine
// plus a concurrent Close.
type Writer struct {
	mu     sync.Mutex
	closer io.Closer
	buf    *bufio.Writer
	count  uint64
	closed bool
	err    error
}

// Create starts a new recording at path. An existing file is an error.
func Create(path string, session uuid.UUID) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("record: create %s: %w", path, err)
	}
	w, err := NewWriter(f, session)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func NewWriter(dst io.Writer, session uuid.UUID) (*Writer, error) {
	w := &Writer{buf: bufio.NewWriterSize(dst, 64*can.RecordLen)}
	if _, err := w.buf.Write(Header{Version: Version, Session: session}.encode()); err != nil {
		return nil, fmt.Errorf("record: header: %w", err)
	}
	return w, nil
}

func (w *Writer) Write(f can.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if err := can.WriteRecord(w.buf, f); err != nil {
		w.err = err
		return err
	}
	w.count++
	return nil
}

// Count returns how many frames were written.
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.buf.Flush()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}

// Tap adapts w to a receive hook. The first write error is logged and the
// rest of the recording is skipped.
func (w *Writer) Tap(logger zerolog.Logger) func(can.Frame) {
	var once sync.Once
	return func(f can.Frame) {
		if err := w.Write(f); err != nil {
			once.Do(func() {
				logger.Error().Err(err).Msg("recording stopped")
			})
		}
	}
}

// Reader iterates a recording.
type Reader struct {
	src    *bufio.Reader
	closer io.Closer
	Header Header
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

func NewReader(src io.Reader) (*Reader, error) {
	r := &Reader{src: bufio.NewReader(src)}
	var buf [HeaderLen]byte
	if _, err := io.ReadFull(r.src, buf[:]); err != nil {
		return nil, fmt.Errorf("record: header: %w", err)
	}
	h, err := decodeHeader(buf[:])
	if err != nil {
		return nil, err
	}
	r.Header = h
	return r, nil
}

// Next returns the next frame, or io.EOF at a clean end.
func (r *Reader) Next() (can.Frame, error) {
	return can.ReadRecord(r.src)
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
