package vision

import (
	"gocv.io/x/gocv"

	"framescope/internal/detect"
)

const hueBins = 180

type Theme struct {
	DominantHue int
	Saturation  float64
	Brightness  float64
	Name        string
}

// SampleTheme summarizes the overall color of a BGR frame from a hue
// histogram and the mean saturation and value.
func SampleTheme(frame gocv.Mat) (Theme, error) {
	hsv, err := HSV(frame)
	if err != nil {
		return Theme{}, err
	}
	defer hsv.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	hist := gocv.NewMat()
	defer hist.Close()
	gocv.CalcHist([]gocv.Mat{hsv}, []int{0}, mask, &hist, []int{hueBins}, []float64{0, hueBins}, false)
	// hist is hueBins x 1; the first maximum wins ties
	_, _, _, maxLoc := gocv.MinMaxLoc(hist)
	dominant := maxLoc.Y

	mean := hsv.Mean()
	theme := Theme{
		DominantHue: dominant,
		Saturation:  mean.Val2,
		Brightness:  mean.Val3,
	}
	theme.Name = detect.ClassifyTheme(theme.DominantHue, theme.Saturation, theme.Brightness)
	return theme, nil
}
