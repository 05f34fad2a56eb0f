package can

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	MaxDataLen = 8

	// RecordLen is the fixed size of one encoded frame record.
	RecordLen = 21

	MaxStandardID uint32 = 0x7FF
	MaxExtendedID uint32 = 0x1FFFFFFF

	// FlagExtended marks a 29-bit identifier in the encoded id word.
	FlagExtended uint32 = 0x80000000
)

var (
	ErrInvalidID    = errors.New("can: invalid identifier")
	ErrInvalidLen   = errors.New("can: invalid data length")
	ErrShortRecord  = errors.New("can: short frame record")
	ErrDirtyPadding = errors.New("can: data bytes beyond length are not zero")
)

// Frame is one classical CAN frame as exchanged with the arm.
type Frame struct {
	ID        uint32
	Data      [MaxDataLen]byte
	Len       uint8
	Extended  bool
	Timestamp uint64 // hardware receive time in µs, 0 when unavailable
}

// New builds a standard or extended frame from id and data. IDs above the
// 11-bit range are marked extended.
func New(id uint32, data []byte) (Frame, error) {
	if len(data) > MaxDataLen {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidLen, len(data))
	}
	f := Frame{ID: id, Len: uint8(len(data)), Extended: id > MaxStandardID}
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// MustNew is New for static frames; it panics on invalid input.
func MustNew(id uint32, data []byte) Frame {
	f, err := New(id, data)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Frame) Validate() error {
	if f.Len > MaxDataLen {
		return fmt.Errorf("%w: %d", ErrInvalidLen, f.Len)
	}
	limit := MaxStandardID
	if f.Extended {
		limit = MaxExtendedID
	}
	if f.ID > limit {
		return fmt.Errorf("%w: 0x%X", ErrInvalidID, f.ID)
	}
	for _, b := range f.Data[f.Len:] {
		if b != 0 {
			return ErrDirtyPadding
		}
	}
	return nil
}

// Payload returns the valid data bytes.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Len]
}

func (f Frame) String() string {
	if f.Extended {
		return fmt.Sprintf("%08X#% X", f.ID, f.Data[:f.Len])
	}
	return fmt.Sprintf("%03X#% X", f.ID, f.Data[:f.Len])
}

// EncodeRecord writes f into buf using the fixed record layout:
//
//	0..3   id (bit 31 set for extended)
//	4..11  data
//	12     length
//	13..20 timestamp µs
func EncodeRecord(buf []byte, f Frame) error {
	if len(buf) < RecordLen {
		return ErrShortRecord
	}
	if err := f.Validate(); err != nil {
		return err
	}
	id := f.ID
	if f.Extended {
		id |= FlagExtended
	}
	binary.BigEndian.PutUint32(buf[0:4], id)
	copy(buf[4:12], f.Data[:])
	buf[12] = f.Len
	binary.BigEndian.PutUint64(buf[13:21], f.Timestamp)
	return nil
}

func DecodeRecord(b []byte) (Frame, error) {
	if len(b) < RecordLen {
		return Frame{}, ErrShortRecord
	}
	id := binary.BigEndian.Uint32(b[0:4])
	f := Frame{
		ID:        id &^ FlagExtended,
		Extended:  id&FlagExtended != 0,
		Len:       b[12],
		Timestamp: binary.BigEndian.Uint64(b[13:21]),
	}
	copy(f.Data[:], b[4:12])
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func ReadRecord(r io.Reader) (Frame, error) {
	var buf [RecordLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortRecord
		}
		return Frame{}, err
	}
	return DecodeRecord(buf[:])
}

func WriteRecord(w io.Writer, f Frame) error {
	var buf [RecordLen]byte
	if err := EncodeRecord(buf[:], f); err != nil {
		return err
	}
	_, err := w.Write(buf[:])
	return err
}
