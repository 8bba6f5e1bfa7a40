package detect

import (
	"math"

	"framescope/internal/config"
	"framescope/internal/model"
)

// ClassifyTransition grades a whole-frame change. meanAbsDiff is the mean
// absolute color difference, brightnessDelta the change of mean gray level.
// The returned magnitude is the quantity that crossed its threshold.
func ClassifyTransition(meanAbsDiff, brightnessDelta float64, conf *config.TransitionConfig) (model.Kind, float64, bool) {
	if meanAbsDiff > conf.CutThreshold {
		if math.Abs(brightnessDelta) > conf.FadeBrightness {
			if brightnessDelta < 0 {
				return model.KindFadeOut, meanAbsDiff, true
			}
			return model.KindFadeIn, meanAbsDiff, true
		}
		return model.KindCut, meanAbsDiff, true
	}
	if math.Abs(brightnessDelta) > conf.FlashThreshold {
		if brightnessDelta < 0 {
			return model.KindFlashDark, math.Abs(brightnessDelta), true
		}
		return model.KindFlashBright, math.Abs(brightnessDelta), true
	}
	return "", 0, false
}

// ClassifyTheme names the overall look of a frame from its dominant hue
// (0-180), mean saturation and mean brightness (0-255).
func ClassifyTheme(hue int, saturation, brightness float64) string {
	switch {
	case brightness < 80:
		return "dark"
	case brightness > 200:
		return "bright"
	case saturation < 50:
		return "grayscale"
	case hue < 30 || (hue >= 150 && hue < 180):
		return "warm"
	case hue >= 30 && hue < 150:
		return "cool"
	default:
		return "neutral"
	}
}
