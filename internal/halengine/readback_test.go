package halengine

import (
	"bytes"
	"testing"
)

func TestAlignBytesPerRow(t *testing.T) {
	tests := []struct {
		in   uint32
		want uint32
	}{
		{1, 256},
		{255, 256},
		{256, 256},
		{257, 512},
		{640 * 4, 2560},
		{800 * 4, 3328},
		{1024 * 4, 4096},
	}
	for _, tt := range tests {
		if got := alignBytesPerRow(tt.in); got != tt.want {
			t.Errorf("alignBytesPerRow(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBGRAToRGBA(t *testing.T) {
	src := []byte{
		0x01, 0x02, 0x03, 0x04, // BGRA pixel 1
		0x10, 0x20, 0x30, 0x40, // BGRA pixel 2
	}
	dst := make([]byte, len(src))
	bgraToRGBA(src, dst)

	want := []byte{
		0x03, 0x02, 0x01, 0x04,
		0x30, 0x20, 0x10, 0x40,
	}
	if !bytes.Equal(dst, want) {
		t.Errorf("bgraToRGBA = %x, want %x", dst, want)
	}
}

func TestTriangleVertices(t *testing.T) {
	data := triangleVertices()
	if len(data) != 3*triangleVertexStride {
		t.Fatalf("vertex data = %d bytes, want %d", len(data), 3*triangleVertexStride)
	}

	layout := triangleVertexLayout()
	if len(layout) != 1 {
		t.Fatalf("vertex layouts = %d, want 1", len(layout))
	}
	if layout[0].ArrayStride != triangleVertexStride {
		t.Errorf("stride = %d, want %d", layout[0].ArrayStride, triangleVertexStride)
	}
	if len(layout[0].Attributes) != 2 {
		t.Errorf("attributes = %d, want 2", len(layout[0].Attributes))
	}
}
