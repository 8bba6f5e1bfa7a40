package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"framescope/internal/detect"
)

// SampleShakeGrid measures the mean absolute intensity change of each cell
// of a size×size partition between two grayscale frames. Cell edges are
// spread proportionally so the whole frame is covered.
func SampleShakeGrid(prevGray, nextGray gocv.Mat, size int) (detect.ShakeGrid, error) {
	if err := checkPair(prevGray, nextGray); err != nil {
		return detect.ShakeGrid{}, err
	}
	width, height := prevGray.Cols(), prevGray.Rows()
	if size <= 0 || width < size || height < size {
		return detect.ShakeGrid{}, fmt.Errorf("cannot split %dx%d frame into %d cells per side", width, height, size)
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(prevGray, nextGray, &diff)

	grid := detect.NewShakeGrid(size)
	for r := 0; r < size; r++ {
		y0, y1 := r*height/size, (r+1)*height/size
		for c := 0; c < size; c++ {
			x0, x1 := c*width/size, (c+1)*width/size
			cell := diff.Region(image.Rect(x0, y0, x1, y1))
			grid.Set(r, c, cell.Mean().Val1)
			cell.Close()
		}
	}
	return grid, nil
}
