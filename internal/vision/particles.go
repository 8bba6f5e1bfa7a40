package vision

import (
	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
)

type ParticleCounter struct {
	conf *config.ParticleConfig
}

func NewParticleCounter(conf *config.ParticleConfig) *ParticleCounter {
	return &ParticleCounter{conf: conf}
}

// Count counts small spots in next: sparkles and confetti from HSV masks
// of next alone, new spots from the thresholded gray difference of the
// two BGR frames.
func (c *ParticleCounter) Count(prev, next gocv.Mat) (detect.ParticleCounts, error) {
	if err := checkPair(prev, next); err != nil {
		return detect.ParticleCounts{}, err
	}
	hsv, err := HSV(next)
	if err != nil {
		return detect.ParticleCounts{}, err
	}
	defer hsv.Close()

	var counts detect.ParticleCounts
	sparkles := RangeMask(hsv, c.conf.SparkleRange)
	counts.Sparkles = countContours(sparkles, c.conf.Sparkles)
	sparkles.Close()

	confetti := RangeMask(hsv, c.conf.ConfettiRange)
	counts.Confetti = countContours(confetti, c.conf.Confetti)
	confetti.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(prev, next, &diff)
	diffGray, err := Gray(diff)
	if err != nil {
		return detect.ParticleCounts{}, err
	}
	defer diffGray.Close()
	spots := gocv.NewMat()
	defer spots.Close()
	gocv.Threshold(diffGray, &spots, float32(c.conf.DiffThreshold), 255, gocv.ThresholdBinary)
	counts.Spots = countContours(spots, c.conf.Spots)
	return counts, nil
}

func countContours(mask gocv.Mat, w config.ParticleWindow) int {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	n := 0
	for i := 0; i < contours.Size(); i++ {
		if detect.InWindow(gocv.ContourArea(contours.At(i)), w) {
			n++
		}
	}
	return n
}
