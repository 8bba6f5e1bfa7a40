package vision

import (
	"fmt"
	"image"
	"path"

	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
	"framescope/internal/model"
)

// Blob is an accepted saturated, bright, roughly round region.
type Blob struct {
	Class       string
	Bounds      image.Rectangle
	Center      model.Point
	Area        float64
	Circularity float64
}

func (b Blob) Size() model.Size {
	return model.Size{Width: b.Bounds.Dx(), Height: b.Bounds.Dy()}
}

type BlobFinder struct {
	conf *config.BlobConfig
}

func NewBlobFinder(conf *config.BlobConfig) *BlobFinder {
	return &BlobFinder{conf: conf}
}

// Find extracts external contours of the saturation/value mask of a BGR
// frame and keeps those passing the area window and circularity floor.
// Blobs come out in contour order.
func (f *BlobFinder) Find(frame gocv.Mat) ([]Blob, error) {
	hsv, err := HSV(frame)
	if err != nil {
		return nil, err
	}
	defer hsv.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, f.conf.SatMin, f.conf.ValMin, 0),
		gocv.NewScalar(180, 255, 255, 0), &mask)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var blobs []Blob
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		perimeter := gocv.ArcLength(contour, true)
		circ, ok := detect.AcceptBlob(area, perimeter, f.conf)
		if !ok {
			continue
		}
		rect := gocv.BoundingRect(contour)
		blobs = append(blobs, Blob{
			Class:       f.meanColorClass(frame, mask, rect),
			Bounds:      rect,
			Center:      model.Point{X: rect.Min.X + rect.Dx()/2, Y: rect.Min.Y + rect.Dy()/2},
			Area:        area,
			Circularity: circ,
		})
	}
	return blobs, nil
}

// meanColorClass averages only the masked pixels inside rect.
func (f *BlobFinder) meanColorClass(frame, mask gocv.Mat, rect image.Rectangle) string {
	region := frame.Region(rect)
	defer region.Close()
	regionMask := mask.Region(rect)
	defer regionMask.Close()
	mean := region.MeanWithMask(regionMask)
	return detect.BlobColorClass(mean.Val1, mean.Val2, mean.Val3)
}

// WriteSnapshot crops the blob out of frame into dir and returns the file
// path.
func WriteSnapshot(frame gocv.Mat, blob Blob, dir string, frameIndex int) (string, error) {
	rect := blob.Bounds.Intersect(Bounds(frame))
	if rect.Empty() {
		return "", fmt.Errorf("blob %v outside frame", blob.Bounds)
	}
	crop := frame.Region(rect)
	defer crop.Close()

	name := fmt.Sprintf("%06d_%s_%d_%d.png", frameIndex, blob.Class, blob.Center.X, blob.Center.Y)
	p := path.Join(dir, name)
	if !gocv.IMWrite(p, crop) {
		return "", fmt.Errorf("write snapshot %s", p)
	}
	return p, nil
}
