package detect

import (
	"math"

	"framescope/internal/config"
)

// RangeFraction is the share of probed pixels that fell inside a named
// HSV range.
type RangeFraction struct {
	Range    config.HSVRange
	Fraction float64
}

// Wraps reports whether the hue interval passes through 0.
func Wraps(r config.HSVRange) bool {
	return r.HueMin > r.HueMax
}

// PickRange returns the winning range: the highest fraction that clears its
// minimum. Ties keep the range evaluated first.
func PickRange(fractions []RangeFraction, defaultMin float64) (RangeFraction, bool) {
	var best RangeFraction
	found := false
	for _, f := range fractions {
		floor := f.Range.MinFraction
		if floor == 0 {
			floor = defaultMin
		}
		if f.Fraction <= floor {
			continue
		}
		if !found || f.Fraction > best.Fraction {
			best = f
			found = true
		}
	}
	return best, found
}

// Circularity is 4π·area/perimeter², 1 for a perfect disc.
func Circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// AcceptBlob applies the area window and circularity floor.
func AcceptBlob(area, perimeter float64, conf *config.BlobConfig) (float64, bool) {
	if area <= conf.MinArea || area >= conf.MaxArea {
		return 0, false
	}
	circ := Circularity(area, perimeter)
	return circ, circ > conf.MinCircularity
}

// BlobColorClass buckets a mean BGR color into coarse marker classes.
func BlobColorClass(b, g, r float64) string {
	switch {
	case r > 200 && g < 100 && b < 100:
		return "red"
	case r > 200 && g > 200 && b < 100:
		return "yellow"
	case b > 200 && g < 150 && r < 150:
		return "blue"
	case g > 200 && r < 150 && b < 150:
		return "green"
	default:
		return "other"
	}
}
