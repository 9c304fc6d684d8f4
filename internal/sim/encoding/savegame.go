package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// maxString bounds length prefixes so a corrupt stream cannot trigger huge
// allocations.
const maxString = 1 << 20

var ErrCorrupt = errors.New("encoding: corrupt save stream")

type Color struct {
	R, G, B uint8
}

// Writer emits the positional little-endian save format. The first error is
// sticky: later writes are dropped and Err reports it.
type Writer struct {
	w   io.Writer
	err error
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Err() error { return w.err }

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *Writer) WriteByte(b byte) error {
	w.buf[0] = b
	w.write(w.buf[:1])
	return w.err
}

func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.write(w.buf[:4])
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

// WriteUint64 writes the high word first.
func (w *Writer) WriteUint64(v uint64) {
	w.WriteUint32(uint32(v >> 32))
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteInt32(1)
		return
	}
	w.WriteInt32(0)
}

func (w *Writer) WriteFloat(v float32) { w.WriteUint32(math.Float32bits(v)) }

func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.write([]byte(s))
}

func (w *Writer) WriteVec3(v mgl32.Vec3) {
	w.WriteFloat(v[0])
	w.WriteFloat(v[1])
	w.WriteFloat(v[2])
}

func (w *Writer) WriteColor(c Color) {
	w.write([]byte{c.R, c.G, c.B})
}

// WriteMask stores the raw length followed by the run-encoded bytes.
func (w *Writer) WriteMask(b []byte) {
	w.WriteInt32(int32(len(b)))
	if len(b) == 0 {
		return
	}
	runs := EncodeRuns(b)
	w.WriteInt32(int32(len(runs)))
	w.write(runs)
}

// Reader is the counterpart of Writer with the same sticky-error behaviour.
type Reader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) read(b []byte) bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		r.err = err
		return false
	}
	return true
}

func (r *Reader) ReadByte() (byte, error) {
	if !r.read(r.buf[:1]) {
		return 0, r.err
	}
	return r.buf[0], nil
}

func (r *Reader) ReadUint32() uint32 {
	if !r.read(r.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.buf[:4])
}

func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

func (r *Reader) ReadUint64() uint64 {
	hi := r.ReadUint32()
	lo := r.ReadUint32()
	return uint64(hi)<<32 | uint64(lo)
}

func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

func (r *Reader) ReadBool() bool { return r.ReadInt32() != 0 }

func (r *Reader) ReadFloat() float32 { return math.Float32frombits(r.ReadUint32()) }

func (r *Reader) ReadString() string {
	n := r.ReadInt32()
	if r.err != nil {
		return ""
	}
	if n < 0 || n > maxString {
		r.fail(fmt.Errorf("%w: string length %d", ErrCorrupt, n))
		return ""
	}
	b := make([]byte, n)
	if !r.read(b) {
		return ""
	}
	return string(b)
}

func (r *Reader) ReadVec3() mgl32.Vec3 {
	return mgl32.Vec3{r.ReadFloat(), r.ReadFloat(), r.ReadFloat()}
}

func (r *Reader) ReadColor() Color {
	var b [3]byte
	if !r.read(b[:]) {
		return Color{}
	}
	return Color{R: b[0], G: b[1], B: b[2]}
}

func (r *Reader) ReadMask() []byte {
	n := r.ReadInt32()
	if r.err != nil || n == 0 {
		return nil
	}
	if n < 0 || n > math.MaxInt32/2 {
		r.fail(fmt.Errorf("%w: mask length %d", ErrCorrupt, n))
		return nil
	}
	rn := r.ReadInt32()
	if r.err != nil {
		return nil
	}
	if rn < 0 || rn > maxString*16 {
		r.fail(fmt.Errorf("%w: mask runs length %d", ErrCorrupt, rn))
		return nil
	}
	raw := make([]byte, rn)
	if !r.read(raw) {
		return nil
	}
	out, err := DecodeRuns(raw, int(n))
	if err != nil {
		r.fail(fmt.Errorf("%w: %v", ErrCorrupt, err))
		return nil
	}
	return out
}
