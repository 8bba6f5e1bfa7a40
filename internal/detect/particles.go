package detect

import (
	"framescope/internal/config"
	"framescope/internal/model"
)

// ParticleCounts are the in-window contour counts of one frame pair.
type ParticleCounts struct {
	Sparkles int
	Confetti int
	Spots    int
}

// InWindow reports whether a contour area lies strictly inside the window.
func InWindow(area float64, w config.ParticleWindow) bool {
	return area > w.MinArea && area < w.MaxArea
}

// ParticleBurst is one flagged particle effect; Count is its magnitude.
type ParticleBurst struct {
	Kind  model.Kind
	Count int
}

// ClassifyParticles flags every effect whose count exceeds its minimum, in
// sparkles, confetti, spots order.
func ClassifyParticles(counts ParticleCounts, conf *config.ParticleConfig) []ParticleBurst {
	var bursts []ParticleBurst
	if counts.Sparkles > conf.Sparkles.MinCount {
		bursts = append(bursts, ParticleBurst{Kind: model.KindSparkles, Count: counts.Sparkles})
	}
	if counts.Confetti > conf.Confetti.MinCount {
		bursts = append(bursts, ParticleBurst{Kind: model.KindConfetti, Count: counts.Confetti})
	}
	if counts.Spots > conf.Spots.MinCount {
		bursts = append(bursts, ParticleBurst{Kind: model.KindParticles, Count: counts.Spots})
	}
	return bursts
}
