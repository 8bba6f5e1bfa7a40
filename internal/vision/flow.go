package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
)

// FlowEstimator computes a dense Farneback motion field between two frames.
type FlowEstimator struct {
	conf config.FarnebackConfig
}

func NewFlowEstimator(conf config.FarnebackConfig) *FlowEstimator {
	return &FlowEstimator{conf: conf}
}

// Estimate takes two grayscale frames of the same size.
func (e *FlowEstimator) Estimate(prevGray, nextGray gocv.Mat) (*detect.MotionField, error) {
	if err := checkPair(prevGray, nextGray); err != nil {
		return nil, err
	}

	flow := gocv.NewMat()
	defer flow.Close()
	gocv.CalcOpticalFlowFarneback(prevGray, nextGray, &flow,
		e.conf.PyrScale, e.conf.Levels, e.conf.WinSize, e.conf.Iterations,
		e.conf.PolyN, e.conf.PolySigma, 0)

	data, err := flow.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read flow data: %w", err)
	}
	width, height := prevGray.Cols(), prevGray.Rows()
	if len(data) != 2*width*height {
		return nil, fmt.Errorf("flow has %d values, want %d", len(data), 2*width*height)
	}

	field := detect.NewMotionField(width, height)
	for i := 0; i < width*height; i++ {
		field.DX[i] = data[2*i]
		field.DY[i] = data[2*i+1]
	}
	return field, nil
}
