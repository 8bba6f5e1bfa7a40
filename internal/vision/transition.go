package vision

import (
	"gocv.io/x/gocv"
)

// TransitionMeasure compares two whole BGR frames.
type TransitionMeasure struct {
	// MeanAbsDiff is the mean absolute difference averaged over channels.
	MeanAbsDiff float64
	// BrightnessDelta is the change of mean gray level, next minus prev.
	BrightnessDelta float64
}

func MeasureTransition(prev, next, prevGray, nextGray gocv.Mat) (TransitionMeasure, error) {
	if err := checkPair(prev, next); err != nil {
		return TransitionMeasure{}, err
	}
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(prev, next, &diff)

	mean := diff.Mean()
	channels := diff.Channels()
	sum := mean.Val1
	if channels >= 3 {
		sum += mean.Val2 + mean.Val3
	} else {
		channels = 1
	}

	return TransitionMeasure{
		MeanAbsDiff:     sum / float64(channels),
		BrightnessDelta: nextGray.Mean().Val1 - prevGray.Mean().Val1,
	}, nil
}
