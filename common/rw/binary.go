package rw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrShortBuffer = errors.New("rw: read past end of buffer")

// Align4 rounds x up to a multiple of four.
func Align4(x int) int { return (x + 3) &^ 3 }

// Reader reads little-endian fixed-layout records. The first failure is
// sticky: later reads return zero values and Err reports the cause.
type Reader struct {
	order binary.ByteOrder
	data  []byte
	off   int
	err   error
}

func NewTileDataReader(data []byte) *Reader {
	return &Reader{order: binary.LittleEndian, data: data}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) Offset() int { return r.off }

func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, len(r.data))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Skip(n int) {
	r.take(n)
}

// SkipTo advances to an absolute offset.
func (r *Reader) SkipTo(off int) {
	if off < r.off {
		if r.err == nil {
			r.err = fmt.Errorf("rw: cannot seek back from %d to %d", r.off, off)
		}
		return
	}
	r.take(off - r.off)
}

func (r *Reader) ReadUInt8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadUInt16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

func (r *Reader) ReadUInt32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUInt32())
}

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUInt32())
}

func (r *Reader) ReadUInt16s(value []uint16) {
	for i := range value {
		value[i] = r.ReadUInt16()
	}
}

func (r *Reader) ReadFloat32s(value []float32) {
	for i := range value {
		value[i] = r.ReadFloat32()
	}
}

// Writer builds little-endian fixed-layout records.
type Writer struct {
	order   binary.ByteOrder
	dataBuf [8]byte
	buf     bytes.Buffer
}

func NewTileDataWriter() *Writer {
	return &Writer{order: binary.LittleEndian}
}

func (w *Writer) WriteUInt8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *Writer) WriteUInt16(v uint16) {
	w.order.PutUint16(w.dataBuf[:2], v)
	w.buf.Write(w.dataBuf[:2])
}

func (w *Writer) WriteUInt32(v uint32) {
	w.order.PutUint32(w.dataBuf[:4], v)
	w.buf.Write(w.dataBuf[:4])
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUInt32(uint32(v))
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUInt32(math.Float32bits(v))
}

func (w *Writer) WriteUInt16s(v []uint16) {
	for _, tmp := range v {
		w.WriteUInt16(tmp)
	}
}

func (w *Writer) WriteFloat32s(v []float32) {
	for _, tmp := range v {
		w.WriteFloat32(tmp)
	}
}

func (w *Writer) WriteString(s string) {
	w.buf.WriteString(s)
}

func (w *Writer) PadZero(n int) {
	for i := 0; i < n; i++ {
		w.buf.WriteByte(0)
	}
}

// PadAlign4 zero-fills up to the next multiple of four.
func (w *Writer) PadAlign4() {
	w.PadZero(Align4(w.buf.Len()) - w.buf.Len())
}

func (w *Writer) Size() int {
	return w.buf.Len()
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}
