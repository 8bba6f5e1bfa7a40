package model

import "fmt"

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RawDetection is one detector's observation for one frame pair. It is
// never mutated after being produced.
type RawDetection struct {
	FrameIndex int     `json:"frame"`
	Timestamp  float64 `json:"timestamp"`
	Kind       Kind    `json:"kind"`
	Magnitude  float64 `json:"magnitude"`
	// Direction is the mean flow angle in radians.
	Direction  float64 `json:"direction,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Position   *Point  `json:"position,omitempty"`
	Size       *Size   `json:"size,omitempty"`
	// Label carries the board square for indicator cells and the axis for
	// pans.
	Label      string  `json:"label,omitempty"`
	ZoomFactor float64 `json:"zoom_factor,omitempty"`
	RadialFlow float64 `json:"radial_flow,omitempty"`
	Matches    int     `json:"matches,omitempty"`
}

// ThemeSample is a periodic color-theme measurement of one frame.
type ThemeSample struct {
	FrameIndex    int     `json:"frame"`
	Timestamp     float64 `json:"timestamp"`
	DominantHue   int     `json:"dominant_hue"`
	AvgSaturation float64 `json:"avg_saturation"`
	AvgBrightness float64 `json:"avg_brightness"`
	Theme         string  `json:"theme"`
}
