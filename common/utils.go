package common

import "unsafe"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// SliceToBytes reinterprets a slice as its raw bytes for GPU buffer uploads.
// The returned slice aliases the input memory, so writes through either view are visible in the other.
//
// Parameters:
//   - data: source slice of any fixed-layout type
//
// Returns:
//   - []byte: byte view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(data[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), size*len(data))
}

// ValueBytes reinterprets a single value as its raw bytes. The returned slice aliases *v.
//
// Parameters:
//   - v: pointer to a fixed-layout value
//
// Returns:
//   - []byte: byte view of *v, or nil if T has zero size
func ValueBytes[T any](v *T) []byte {
	size := int(unsafe.Sizeof(*v))
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), size)
}

// SizeOf returns the in-memory size of T in bytes.
//
// Returns:
//   - int: the size of T as reported by unsafe.Sizeof
func SizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}
