package blend

import (
	"encoding/binary"
	"testing"
)

// TestMixBoundaries checks the alpha extremes for every 10-bit value.
func TestMixBoundaries(t *testing.T) {
	for v := 0; v <= 1023; v++ {
		dst, src := uint16(v), uint16(1023-v)

		if got := Mix(dst, src, 0); got != dst {
			t.Fatalf("Mix(%d, %d, 0) = %d, want %d", dst, src, got, dst)
		}

		got := Mix(dst, src, 255)
		diff := int(src) - int(got)
		if diff < -4 || diff > 4 {
			t.Fatalf("Mix(%d, %d, 255) = %d, too far from src", dst, src, got)
		}
	}
}

// TestMixHalf checks that alpha 128 averages with truncation.
func TestMixHalf(t *testing.T) {
	tests := []struct {
		dst, src, want uint16
	}{
		{0, 0, 0},
		{0, 255, 127},
		{255, 0, 127},
		{100, 201, 150},
		{1023, 1023, 1023},
		{1022, 1, 511},
	}
	for _, tt := range tests {
		if got := Mix(tt.dst, tt.src, 128); got != tt.want {
			t.Errorf("Mix(%d, %d, 128) = %d, want %d", tt.dst, tt.src, got, tt.want)
		}
	}
}

func TestRow8(t *testing.T) {
	dst := []byte{0, 10, 200, 255}
	src := []byte{255, 30, 100, 255, 99}
	Row8(dst, src, 128)
	want := []byte{127, 20, 150, 255}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], want[i])
		}
	}
}

func TestRowAlpha8(t *testing.T) {
	dst := []byte{10, 10, 10}
	src := []byte{250, 250, 250}
	alpha := []byte{0, 128, 255}
	RowAlpha8(dst, src, alpha)
	if dst[0] != 10 {
		t.Errorf("alpha 0: got %d, want 10", dst[0])
	}
	if dst[1] != 130 {
		t.Errorf("alpha 128: got %d, want 130", dst[1])
	}
	// (10*1 + 250*255) >> 8 = 249
	if dst[2] != 249 {
		t.Errorf("alpha 255: got %d, want 249", dst[2])
	}
}

func TestRow16MatchesMix(t *testing.T) {
	dst := []uint16{0, 512, 1023}
	src := []uint16{1023, 0, 512}
	db := make([]byte, 2*len(dst))
	sb := make([]byte, 2*len(src))
	for i := range dst {
		binary.LittleEndian.PutUint16(db[2*i:], dst[i])
		binary.LittleEndian.PutUint16(sb[2*i:], src[i])
	}
	Row16(db, sb, 77)
	for i := range dst {
		want := Mix(dst[i], src[i], 77)
		if got := binary.LittleEndian.Uint16(db[2*i:]); got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}
