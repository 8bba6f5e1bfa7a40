package detect

import (
	"image"
	"math"

	"framescope/internal/config"
	"framescope/internal/model"
)

type MotionClass struct {
	Kind       model.Kind
	Axis       model.PanAxis
	ZoomFactor float64
	Confidence float64
	Stats      MotionStats
}

// Correspondence is the sparse keypoint signal used to corroborate zooms.
type Correspondence struct {
	Matches      int
	MeanDistance float64
}

type motionRule struct {
	name  string
	match func(s MotionStats, conf *config.MotionConfig) bool
	apply func(s MotionStats, conf *config.MotionConfig) MotionClass
}

// motionRules is evaluated top to bottom and the first match wins. Radial
// agreement is checked before any pan test so a fast pan is never taken
// for a zoom only because of its magnitude.
var motionRules = []motionRule{
	{
		name: "static",
		match: func(s MotionStats, conf *config.MotionConfig) bool {
			return s.AvgMagnitude <= conf.StaticMaxMagnitude
		},
		apply: func(s MotionStats, conf *config.MotionConfig) MotionClass {
			return MotionClass{Kind: model.KindStatic, ZoomFactor: 1}
		},
	},
	{
		name: "zoom_in",
		match: func(s MotionStats, conf *config.MotionConfig) bool {
			return s.RadialFlow > conf.ZoomRadialFlow
		},
		apply: func(s MotionStats, conf *config.MotionConfig) MotionClass {
			return MotionClass{Kind: model.KindZoomIn, ZoomFactor: 1 + s.AvgMagnitude/conf.ZoomFactorDivisor}
		},
	},
	{
		name: "zoom_out",
		match: func(s MotionStats, conf *config.MotionConfig) bool {
			return s.RadialFlow < -conf.ZoomRadialFlow
		},
		apply: func(s MotionStats, conf *config.MotionConfig) MotionClass {
			return MotionClass{Kind: model.KindZoomOut, ZoomFactor: 1 - s.AvgMagnitude/conf.ZoomFactorDivisor}
		},
	},
	{
		name: "axis_pan",
		match: func(s MotionStats, conf *config.MotionConfig) bool {
			return s.DirectionalVariance < conf.PanMaxVariance && panAxis(s, conf) != model.PanAxisNone
		},
		apply: func(s MotionStats, conf *config.MotionConfig) MotionClass {
			return MotionClass{Kind: model.KindPan, Axis: panAxis(s, conf), ZoomFactor: 1}
		},
	},
	{
		name: "rotation",
		match: func(s MotionStats, conf *config.MotionConfig) bool {
			return s.DirectionalVariance >= conf.RotationMinVariance
		},
		apply: func(s MotionStats, conf *config.MotionConfig) MotionClass {
			return MotionClass{Kind: model.KindRotation, ZoomFactor: 1}
		},
	},
	{
		name:  "pan",
		match: func(s MotionStats, conf *config.MotionConfig) bool { return true },
		apply: func(s MotionStats, conf *config.MotionConfig) MotionClass {
			return MotionClass{Kind: model.KindPan, ZoomFactor: 1}
		},
	},
}

func panAxis(s MotionStats, conf *config.MotionConfig) model.PanAxis {
	ax, ay := math.Abs(s.MeanDX), math.Abs(s.MeanDY)
	switch {
	case ax > conf.PanAxisRatio*ay:
		return model.PanAxisHorizontal
	case ay > conf.PanAxisRatio*ax:
		return model.PanAxisVertical
	default:
		return model.PanAxisNone
	}
}

type MotionClassifier struct {
	conf *config.MotionConfig
}

func NewMotionClassifier(conf *config.MotionConfig) *MotionClassifier {
	return &MotionClassifier{conf: conf}
}

// ClassifyField reduces a motion field to one class. frameCenter is in frame
// coordinates; the field may be a region of the frame. A field whose mean
// magnitude is under the static threshold is classified without computing
// radial flow.
func (c *MotionClassifier) ClassifyField(f *MotionField, frameCenter image.Point) MotionClass {
	avg := f.AverageMagnitude()
	if avg == 0 || avg <= c.conf.StaticMaxMagnitude {
		return MotionClass{
			Kind:       model.KindStatic,
			ZoomFactor: 1,
			Confidence: 1,
			Stats:      MotionStats{AvgMagnitude: avg},
		}
	}
	return c.Classify(Summarize(f, frameCenter))
}

// Classify applies the ordered rule list to precomputed statistics.
func (c *MotionClassifier) Classify(s MotionStats) MotionClass {
	for _, rule := range motionRules {
		if rule.match(s, c.conf) {
			class := rule.apply(s, c.conf)
			class.Stats = s
			class.Confidence = baseConfidence(class.Kind, s)
			return class
		}
	}
	// the last rule always matches
	panic("motion rules exhausted")
}

func baseConfidence(kind model.Kind, s MotionStats) float64 {
	switch {
	case kind == model.KindStatic:
		return 1
	case kind.IsZoom():
		if s.AvgMagnitude == 0 {
			return 0
		}
		return math.Min(1, math.Abs(s.RadialFlow)/s.AvgMagnitude)
	default:
		return 1 - s.DirectionalVariance
	}
}

// Corroborate folds the keypoint signal into a zoom's confidence. The class
// kind is never changed; without a sufficient correspondence the class is
// returned as is.
func Corroborate(class MotionClass, corr *Correspondence) MotionClass {
	if corr == nil || !class.Kind.IsZoom() || corr.MeanDistance <= 0 {
		return class
	}
	lo := math.Min(corr.MeanDistance, class.Stats.AvgMagnitude)
	hi := math.Max(corr.MeanDistance, class.Stats.AvgMagnitude)
	agreement := lo / hi
	class.Confidence = (class.Confidence + agreement) / 2
	return class
}

// ClassifyBoardShake grades turbulent motion inside the board region. It
// returns "" when the flow is too weak or too coherent to be a shake.
func ClassifyBoardShake(s MotionStats, conf *config.BoardShakeConfig) model.Kind {
	if s.AvgMagnitude <= conf.MinMagnitude || s.DirectionalVariance <= conf.MinVariance {
		return ""
	}
	switch {
	case s.AvgMagnitude > conf.Strong:
		return model.KindShakeStrong
	case s.AvgMagnitude > conf.Moderate:
		return model.KindShakeModerate
	default:
		return model.KindShakeLight
	}
}
