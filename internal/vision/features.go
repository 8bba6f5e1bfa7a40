package vision

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
)

// FeatureMatcher pairs ORB keypoints of two frames with a cross-checked
// brute-force Hamming matcher. It owns native resources; call Close.
type FeatureMatcher struct {
	conf    config.MatcherConfig
	orb     gocv.ORB
	matcher gocv.BFMatcher
}

func NewFeatureMatcher(conf config.MatcherConfig) *FeatureMatcher {
	return &FeatureMatcher{
		conf:    conf,
		orb:     gocv.NewORBWithParams(conf.MaxFeatures, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20),
		matcher: gocv.NewBFMatcherWithParams(gocv.NormHamming, true),
	}
}

func (m *FeatureMatcher) Close() error {
	m.orb.Close()
	return m.matcher.Close()
}

// Match returns the match count and the mean pixel distance between matched
// keypoints. Fewer than MinMatches matches yields ErrInsufficientFeatures.
func (m *FeatureMatcher) Match(prevGray, nextGray gocv.Mat) (*detect.Correspondence, error) {
	if err := checkPair(prevGray, nextGray); err != nil {
		return nil, err
	}

	mask := gocv.NewMat()
	defer mask.Close()
	prevKps, prevDesc := m.orb.DetectAndCompute(prevGray, mask)
	defer prevDesc.Close()
	nextKps, nextDesc := m.orb.DetectAndCompute(nextGray, mask)
	defer nextDesc.Close()

	if len(prevKps) < m.conf.MinMatches || len(nextKps) < m.conf.MinMatches ||
		prevDesc.Empty() || nextDesc.Empty() {
		return nil, fmt.Errorf("%w: %d and %d keypoints", ErrInsufficientFeatures, len(prevKps), len(nextKps))
	}

	matches := m.matcher.Match(prevDesc, nextDesc)
	if len(matches) < m.conf.MinMatches {
		return nil, fmt.Errorf("%w: %d matches", ErrInsufficientFeatures, len(matches))
	}

	sum := 0.0
	for _, match := range matches {
		p := prevKps[match.QueryIdx]
		n := nextKps[match.TrainIdx]
		sum += math.Hypot(n.X-p.X, n.Y-p.Y)
	}
	return &detect.Correspondence{
		Matches:      len(matches),
		MeanDistance: sum / float64(len(matches)),
	}, nil
}
