package vision

import (
	"image"

	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
	"framescope/internal/model"
)

// UIElement is an interface outline found on the edge map of a frame.
type UIElement struct {
	Kind   model.Kind
	Bounds image.Rectangle
	Area   float64
}

// Position is the top-left corner of the element.
func (e UIElement) Position() model.Point {
	return model.Point{X: e.Bounds.Min.X, Y: e.Bounds.Min.Y}
}

func (e UIElement) Size() model.Size {
	return model.Size{Width: e.Bounds.Dx(), Height: e.Bounds.Dy()}
}

func (e UIElement) AspectRatio() float64 {
	return detect.AspectRatio(e.Bounds.Dx(), e.Bounds.Dy())
}

type UIFinder struct {
	conf *config.UIConfig
}

func NewUIFinder(conf *config.UIConfig) *UIFinder {
	return &UIFinder{conf: conf}
}

// Find runs Canny on a grayscale frame and classifies the external edge
// contours. Elements come out in contour order.
func (f *UIFinder) Find(gray gocv.Mat) ([]UIElement, error) {
	if gray.Empty() {
		return nil, ErrEmptyFrame
	}
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, f.conf.CannyLow, f.conf.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var elements []UIElement
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		rect := gocv.BoundingRect(contour)
		kind, ok := detect.ClassifyUIElement(rect.Dx(), rect.Dy(), area, f.conf)
		if !ok {
			continue
		}
		elements = append(elements, UIElement{Kind: kind, Bounds: rect, Area: area})
	}
	return elements, nil
}
