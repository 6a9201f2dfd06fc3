package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, "a", Coalesce("a", "b"))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]uint32{}))

	data := []uint16{0x0201, 0x0403}
	b := SliceToBytes(data)
	assert.Len(t, b, 4)

	// The view aliases the source slice.
	data[0] = 0
	assert.Equal(t, byte(0), b[0])
	assert.Equal(t, byte(0), b[1])
}

func TestValueBytes(t *testing.T) {
	v := [2]uint16{0x0201, 0x0403}
	assert.Equal(t, []byte{1, 2, 3, 4}, ValueBytes(&v))
	assert.Nil(t, ValueBytes(&struct{}{}))

	zero, negZero := float32(0), math32.Copysign(0, -1)
	assert.True(t, zero == negZero)
	assert.NotEqual(t, ValueBytes(&zero), ValueBytes(&negZero))
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, 8, SizeOf[[2]float32]())
	assert.Equal(t, 2, SizeOf[uint16]())
}

func TestRotate2D(t *testing.T) {
	x, y := Rotate2D(1, 0, math32.Pi/2)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 1, y, 1e-6)
}

func TestPixelToNDC(t *testing.T) {
	assert.Equal(t, [2]float32{-1, 1}, PixelToNDC(0, 0, 800, 600))
	assert.Equal(t, [2]float32{1, -1}, PixelToNDC(800, 600, 800, 600))
	assert.Equal(t, [2]float32{0, 0}, PixelToNDC(400, 300, 800, 600))
	assert.Equal(t, [2]float32{}, PixelToNDC(1, 1, 0, 600))
}
