package common

import "github.com/chewxy/math32"

// Rotate2D rotates the point (x, y) around the origin by angle radians.
//
// Parameters:
//   - x, y: the point to rotate
//   - angle: rotation in radians, counter-clockwise
//
// Returns:
//   - float32, float32: the rotated point
func Rotate2D(x, y, angle float32) (float32, float32) {
	s, c := math32.Sincos(angle)
	return x*c - y*s, x*s + y*c
}

// PixelToNDC converts a pixel coordinate (origin top-left, y down) into WebGPU normalized
// device coordinates (origin center, y up).
//
// Parameters:
//   - x, y: the pixel position
//   - width, height: the surface size in pixels
//
// Returns:
//   - [2]float32: the position in normalized device coordinates
func PixelToNDC(x, y float32, width, height int) [2]float32 {
	if width <= 0 || height <= 0 {
		return [2]float32{}
	}
	return [2]float32{
		x/float32(width)*2 - 1,
		1 - y/float32(height)*2,
	}
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
