package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func checkPair(prev, next gocv.Mat) error {
	if prev.Empty() || next.Empty() {
		return ErrEmptyFrame
	}
	if prev.Rows() != next.Rows() || prev.Cols() != next.Cols() {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch,
			prev.Cols(), prev.Rows(), next.Cols(), next.Rows())
	}
	return nil
}

// Gray returns a new single-channel copy of m. The caller closes it.
func Gray(m gocv.Mat) (gocv.Mat, error) {
	if m.Empty() {
		return gocv.Mat{}, ErrEmptyFrame
	}
	if m.Channels() == 1 {
		return m.Clone(), nil
	}
	gray := gocv.NewMat()
	gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

// HSV returns a new HSV copy of a BGR frame. The caller closes it.
func HSV(m gocv.Mat) (gocv.Mat, error) {
	if m.Empty() {
		return gocv.Mat{}, ErrEmptyFrame
	}
	hsv := gocv.NewMat()
	gocv.CvtColor(m, &hsv, gocv.ColorBGRToHSV)
	return hsv, nil
}

// Bounds is the frame rectangle of m.
func Bounds(m gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, m.Cols(), m.Rows())
}
