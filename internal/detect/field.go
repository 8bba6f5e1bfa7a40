package detect

import (
	"image"
	"math"
)

// MotionField is a dense displacement field stored row-major. Origin is the
// position of cell (0,0) in frame coordinates, so a field cut from a region
// of interest still measures radial flow against the full frame's center.
type MotionField struct {
	Width  int
	Height int
	Origin image.Point
	DX     []float32
	DY     []float32
}

func NewMotionField(width, height int) *MotionField {
	return &MotionField{
		Width:  width,
		Height: height,
		DX:     make([]float32, width*height),
		DY:     make([]float32, width*height),
	}
}

func (f *MotionField) Len() int {
	return f.Width * f.Height
}

func (f *MotionField) At(x, y int) (float64, float64) {
	i := y*f.Width + x
	return float64(f.DX[i]), float64(f.DY[i])
}

func (f *MotionField) Set(x, y int, dx, dy float64) {
	i := y*f.Width + x
	f.DX[i] = float32(dx)
	f.DY[i] = float32(dy)
}

// Bounds is the field's extent in frame coordinates.
func (f *MotionField) Bounds() image.Rectangle {
	return image.Rectangle{Min: f.Origin, Max: f.Origin.Add(image.Pt(f.Width, f.Height))}
}

// Region copies the part of the field inside r (frame coordinates). An
// empty intersection yields an empty field.
func (f *MotionField) Region(r image.Rectangle) *MotionField {
	r = r.Intersect(f.Bounds())
	sub := NewMotionField(r.Dx(), r.Dy())
	sub.Origin = r.Min
	for y := 0; y < sub.Height; y++ {
		srcRow := (r.Min.Y-f.Origin.Y+y)*f.Width + (r.Min.X - f.Origin.X)
		copy(sub.DX[y*sub.Width:(y+1)*sub.Width], f.DX[srcRow:srcRow+sub.Width])
		copy(sub.DY[y*sub.Width:(y+1)*sub.Width], f.DY[srcRow:srcRow+sub.Width])
	}
	return sub
}

func (f *MotionField) MaxMagnitude() float64 {
	m := 0.0
	for i := range f.DX {
		if v := math.Hypot(float64(f.DX[i]), float64(f.DY[i])); v > m {
			m = v
		}
	}
	return m
}

// AverageMagnitude is the mean vector length over all cells.
func (f *MotionField) AverageMagnitude() float64 {
	n := f.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := range f.DX {
		sum += math.Hypot(float64(f.DX[i]), float64(f.DY[i]))
	}
	return sum / float64(n)
}

// MotionStats summarizes a motion field.
type MotionStats struct {
	AvgMagnitude float64 `json:"avg_mag"`
	// AvgAngle is the plain mean of the per-cell angles in [0, 2π).
	AvgAngle   float64 `json:"avg_ang"`
	RadialFlow float64 `json:"avg_radial_flow"`
	MeanDX     float64 `json:"mean_dx"`
	MeanDY     float64 `json:"mean_dy"`
	// DirectionalVariance is the circular variance of the directions of
	// the moving cells: 0 when they all agree, near 1 when they spread
	// evenly around the circle.
	DirectionalVariance float64 `json:"directional_variance"`
}

const movingEpsilon = 1e-6

// Summarize computes every statistic of the field against center, given
// in frame coordinates.
func Summarize(f *MotionField, center image.Point) MotionStats {
	n := f.Len()
	if n == 0 {
		return MotionStats{}
	}
	var sumMag, sumAng, sumRadial, sumDX, sumDY, sumCos, sumSin float64
	moving := 0
	cx, cy := float64(center.X), float64(center.Y)
	for y := 0; y < f.Height; y++ {
		py := float64(f.Origin.Y+y) - cy
		for x := 0; x < f.Width; x++ {
			dx, dy := f.At(x, y)
			mag := math.Hypot(dx, dy)
			sumMag += mag
			sumDX += dx
			sumDY += dy

			ang := math.Atan2(dy, dx)
			if ang < 0 {
				ang += 2 * math.Pi
			}
			sumAng += ang
			if mag > movingEpsilon {
				sumCos += dx / mag
				sumSin += dy / mag
				moving++
			}

			px := float64(f.Origin.X+x) - cx
			dist := math.Hypot(px, py)
			if dist == 0 {
				continue
			}
			sumRadial += (dx*px + dy*py) / dist
		}
	}
	total := float64(n)
	stats := MotionStats{
		AvgMagnitude: sumMag / total,
		AvgAngle:     sumAng / total,
		RadialFlow:   sumRadial / total,
		MeanDX:       sumDX / total,
		MeanDY:       sumDY / total,
	}
	if moving > 0 {
		resultant := math.Hypot(sumCos, sumSin) / float64(moving)
		stats.DirectionalVariance = 1 - resultant
	}
	return stats
}
