package rw

import (
	"errors"
	"testing"
)

func TestAlign4(t *testing.T) {
	for in, want := range map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 30: 32} {
		if got := Align4(in); got != want {
			t.Errorf("Align4(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestWriterReaderLayout(t *testing.T) {
	w := NewTileDataWriter()
	w.WriteInt32(-7)
	w.WriteUInt16s([]uint16{1, 0xffff})
	w.WriteUInt8(9)
	w.PadAlign4()
	w.WriteFloat32(1.5)
	if w.Size() != 16 {
		t.Fatalf("size = %d, want 16", w.Size())
	}

	r := NewTileDataReader(w.Bytes())
	if v := r.ReadInt32(); v != -7 {
		t.Errorf("int32 = %d", v)
	}
	u := make([]uint16, 2)
	r.ReadUInt16s(u)
	if u[0] != 1 || u[1] != 0xffff {
		t.Errorf("uint16s = %v", u)
	}
	if v := r.ReadUInt8(); v != 9 {
		t.Errorf("uint8 = %d", v)
	}
	r.SkipTo(Align4(r.Offset()))
	if v := r.ReadFloat32(); v != 1.5 {
		t.Errorf("float32 = %v", v)
	}
	if r.Err() != nil || r.Remaining() != 0 {
		t.Errorf("err=%v remaining=%d", r.Err(), r.Remaining())
	}
}

func TestReaderStickyError(t *testing.T) {
	r := NewTileDataReader([]byte{1, 0})
	_ = r.ReadUInt32()
	if !errors.Is(r.Err(), ErrShortBuffer) {
		t.Fatalf("err = %v", r.Err())
	}
	if v := r.ReadUInt8(); v != 0 {
		t.Errorf("read after failure should be zero, got %d", v)
	}
}
