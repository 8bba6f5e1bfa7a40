package detect

import (
	"framescope/internal/config"
	"framescope/internal/model"
)

const (
	textBarMinAspect   = 2.0
	separatorMinAspect = 10.0
	squareMinAspect    = 0.8
	squareMaxAspect    = 1.2
)

// AspectRatio is width over height, 0 for a degenerate box.
func AspectRatio(width, height int) float64 {
	if height <= 0 {
		return 0
	}
	return float64(width) / float64(height)
}

// ClassifyUIElement names an outline of the given bounding size and
// enclosed area. Outlines that are too small or match no shape are
// rejected.
func ClassifyUIElement(width, height int, area float64, conf *config.UIConfig) (model.Kind, bool) {
	if area <= conf.MinArea {
		return "", false
	}
	aspect := AspectRatio(width, height)
	switch {
	case aspect > textBarMinAspect && aspect < separatorMinAspect && area > conf.TextBarMinArea:
		return model.KindTextBar, true
	case aspect > squareMinAspect && aspect < squareMaxAspect:
		return model.KindButtonSquare, true
	case aspect > separatorMinAspect:
		return model.KindSeparator, true
	default:
		return "", false
	}
}
