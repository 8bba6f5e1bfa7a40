package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
	"framescope/internal/model"
)

// IndicatorHit is one board cell whose probe matched a named color range.
type IndicatorHit struct {
	Square   string
	Position model.Point
	Size     model.Size
	Range    string
	Fraction float64
}

// IndicatorProber looks for colored annotation marks in a small probe near
// the top-right corner of every cell of a square board.
type IndicatorProber struct {
	conf *config.IndicatorConfig
}

func NewIndicatorProber(conf *config.IndicatorConfig) *IndicatorProber {
	return &IndicatorProber{conf: conf}
}

// SquareName names a board cell the algebraic way: files a.. left to right,
// ranks counted from the bottom row.
func SquareName(row, col, cells int) string {
	return fmt.Sprintf("%c%d", 'a'+col, cells-row)
}

// ProbeRect is the probe window of a cell in frame coordinates, unclipped.
func (p *IndicatorProber) ProbeRect(row, col int) image.Rectangle {
	board := p.conf.Board.Rectangle()
	cellW := board.Dx() / p.conf.Cells
	cellH := board.Dy() / p.conf.Cells
	x := board.Min.X + (col+1)*cellW + p.conf.ProbeOffsetX
	y := board.Min.Y + row*cellH + p.conf.ProbeOffsetY
	return image.Rect(x, y, x+p.conf.ProbeWidth, y+p.conf.ProbeHeight)
}

func (p *IndicatorProber) Probe(frame gocv.Mat) ([]IndicatorHit, error) {
	hsv, err := HSV(frame)
	if err != nil {
		return nil, err
	}
	defer hsv.Close()

	bounds := Bounds(frame)
	var hits []IndicatorHit
	for row := 0; row < p.conf.Cells; row++ {
		for col := 0; col < p.conf.Cells; col++ {
			rect := p.ProbeRect(row, col).Intersect(bounds)
			if rect.Empty() {
				continue
			}
			probe := hsv.Region(rect)
			fractions := rangeFractions(probe, p.conf.Ranges)
			probe.Close()

			best, ok := detect.PickRange(fractions, p.conf.MinFraction)
			if !ok {
				continue
			}
			center := rect.Min.Add(rect.Size().Div(2))
			hits = append(hits, IndicatorHit{
				Square:   SquareName(row, col, p.conf.Cells),
				Position: model.Point{X: center.X, Y: center.Y},
				Size:     model.Size{Width: rect.Dx(), Height: rect.Dy()},
				Range:    best.Range.Name,
				Fraction: best.Fraction,
			})
		}
	}
	return hits, nil
}

// rangeFractions evaluates every range, in order, over an HSV region.
func rangeFractions(hsv gocv.Mat, ranges []config.HSVRange) []detect.RangeFraction {
	total := float64(hsv.Rows() * hsv.Cols())
	out := make([]detect.RangeFraction, 0, len(ranges))
	for _, r := range ranges {
		mask := RangeMask(hsv, r)
		fraction := 0.0
		if total > 0 {
			fraction = float64(gocv.CountNonZero(mask)) / total
		}
		mask.Close()
		out = append(out, detect.RangeFraction{Range: r, Fraction: fraction})
	}
	return out
}

// RangeMask thresholds an HSV image with r. A wrapping hue interval is the
// union of [HueMin, 180] and [0, HueMax]. The caller closes the mask.
func RangeMask(hsv gocv.Mat, r config.HSVRange) gocv.Mat {
	mask := gocv.NewMat()
	if !detect.Wraps(r) {
		gocv.InRangeWithScalar(hsv,
			gocv.NewScalar(r.HueMin, r.SatMin, r.ValMin, 0),
			gocv.NewScalar(r.HueMax, r.SatMax, r.ValMax, 0), &mask)
		return mask
	}

	upper := gocv.NewMat()
	defer upper.Close()
	lower := gocv.NewMat()
	defer lower.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(r.HueMin, r.SatMin, r.ValMin, 0),
		gocv.NewScalar(180, r.SatMax, r.ValMax, 0), &upper)
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, r.SatMin, r.ValMin, 0),
		gocv.NewScalar(r.HueMax, r.SatMax, r.ValMax, 0), &lower)
	gocv.BitwiseOr(upper, lower, &mask)
	return mask
}
