package pipeline

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"

	"framescope/internal/model"
)

// Frame is one decoded BGR frame. The pipeline owns Mat once the frame has
// been handed over and closes it after use.
type Frame struct {
	Index     int
	Timestamp float64
	Mat       gocv.Mat
}

// FrameSource yields frames once, in order. Next returns io.EOF after the
// last frame.
type FrameSource interface {
	Metadata() model.VideoMetadata
	Next() (*Frame, error)
	Close() error
}

// VideoSource decodes a video file with OpenCV.
type VideoSource struct {
	capture  *gocv.VideoCapture
	metadata model.VideoMetadata
	next     int
}

// OpenVideo opens path. A positive frameRate overrides the container's.
func OpenVideo(path string, frameRate float64) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input video: %v", err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open input video: %s", path)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if frameRate > 0 {
		fps = frameRate
	}
	if fps <= 0 {
		capture.Close()
		return nil, fmt.Errorf("video %s reports no frame rate", path)
	}
	total := int(capture.Get(gocv.VideoCaptureFrameCount))
	return &VideoSource{
		capture: capture,
		metadata: model.VideoMetadata{
			Path:        path,
			Width:       int(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height:      int(capture.Get(gocv.VideoCaptureFrameHeight)),
			FrameRate:   fps,
			TotalFrames: total,
			Duration:    float64(total) / fps,
		},
	}, nil
}

func (s *VideoSource) Metadata() model.VideoMetadata {
	return s.metadata
}

func (s *VideoSource) Next() (*Frame, error) {
	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}
	f := &Frame{
		Index:     s.next,
		Timestamp: float64(s.next) / s.metadata.FrameRate,
		Mat:       mat,
	}
	s.next++
	return f, nil
}

func (s *VideoSource) Close() error {
	return s.capture.Close()
}
