/*
Package asset holds the pieces shared by every format decoder: the canonical
RGBA image that all of them produce, the offset tables that index sprite and
template files, and the error values used to classify decode failures.

A canonical image is width by height pixels stored densely in row-major
order with the origin in the top-left corner. Each pixel is four bytes of
non-premultiplied red, green, blue and alpha, so two images decoded from the
same input are comparable byte for byte.
*/
package asset

import "errors"

var (
	// ErrNotFound is returned when a referenced file does not exist.
	ErrNotFound = errors.New("asset: resource not found")

	// ErrTruncated is returned when a file is shorter than its format
	// requires.
	ErrTruncated = errors.New("asset: truncated data")

	// ErrMalformed is returned for control byte or offset inconsistencies.
	ErrMalformed = errors.New("asset: malformed stream")

	// ErrIndexOutOfRange is returned when a frame or template index is not
	// present in its offset table.
	ErrIndexOutOfRange = errors.New("asset: index out of range")

	// ErrDimensionMismatch is returned when declared and actual sizes
	// disagree.
	ErrDimensionMismatch = errors.New("asset: dimension mismatch")
)
