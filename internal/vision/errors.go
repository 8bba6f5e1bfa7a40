package vision

import "errors"

var (
	ErrDimensionMismatch    = errors.New("frame dimensions differ")
	ErrInsufficientFeatures = errors.New("insufficient feature matches")
	ErrEmptyFrame           = errors.New("empty frame")
)
