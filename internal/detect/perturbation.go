package detect

import (
	"fmt"
	"math"

	"framescope/internal/config"
	"framescope/internal/model"
)

// ShakeGrid holds the mean absolute intensity change of each cell of an
// N×N partition of the frame, row-major.
type ShakeGrid struct {
	Size  int
	Cells []float64
}

func NewShakeGrid(size int) ShakeGrid {
	return ShakeGrid{Size: size, Cells: make([]float64, size*size)}
}

func (g ShakeGrid) At(row, col int) float64 {
	return g.Cells[row*g.Size+col]
}

func (g ShakeGrid) Set(row, col int, v float64) {
	g.Cells[row*g.Size+col] = v
}

type GridStats struct {
	AvgShake float64 `json:"avg_shake"`
	MaxShake float64 `json:"max_shake"`
	Variance float64 `json:"variance"`
	// RowWave and ColWave are the mean absolute first differences along
	// rows (between neighbouring columns) and along columns.
	RowWave float64 `json:"row_wave"`
	ColWave float64 `json:"col_wave"`
}

func (g ShakeGrid) Stats() (GridStats, error) {
	if g.Size <= 0 || len(g.Cells) != g.Size*g.Size {
		return GridStats{}, fmt.Errorf("malformed %dx%d grid with %d cells", g.Size, g.Size, len(g.Cells))
	}
	var stats GridStats
	stats.MaxShake = math.Inf(-1)
	for _, v := range g.Cells {
		stats.AvgShake += v
		if v > stats.MaxShake {
			stats.MaxShake = v
		}
	}
	n := float64(len(g.Cells))
	stats.AvgShake /= n
	for _, v := range g.Cells {
		d := v - stats.AvgShake
		stats.Variance += d * d
	}
	stats.Variance /= n

	if g.Size > 1 {
		var rowSum, colSum float64
		for r := 0; r < g.Size; r++ {
			for c := 0; c < g.Size-1; c++ {
				rowSum += math.Abs(g.At(r, c+1) - g.At(r, c))
				colSum += math.Abs(g.At(c+1, r) - g.At(c, r))
			}
		}
		pairs := float64(g.Size * (g.Size - 1))
		stats.RowWave = rowSum / pairs
		stats.ColWave = colSum / pairs
	}
	return stats, nil
}

type PerturbationClass struct {
	// Shake is "" when no severity band is reached.
	Shake model.Kind
	Wave  bool
	Stats GridStats
}

func (p PerturbationClass) Empty() bool {
	return p.Shake == "" && !p.Wave
}

// shakeBand is one severity band; bands are evaluated from most to least
// severe.
type shakeBand struct {
	kind  model.Kind
	match func(s GridStats, conf *config.PerturbationConfig) bool
}

var shakeBands = []shakeBand{
	{
		kind:  model.KindShakeStrong,
		match: func(s GridStats, conf *config.PerturbationConfig) bool { return s.MaxShake > conf.StrongMax },
	},
	{
		kind:  model.KindShakeLight,
		match: func(s GridStats, conf *config.PerturbationConfig) bool { return s.AvgShake > conf.LightAvg },
	},
}

func ClassifyPerturbation(s GridStats, conf *config.PerturbationConfig) PerturbationClass {
	class := PerturbationClass{Stats: s}
	for _, band := range shakeBands {
		if band.match(s, conf) {
			class.Shake = band.kind
			break
		}
	}
	if s.Variance > conf.WaveMinVariance &&
		(s.RowWave > conf.WaveThreshold || s.ColWave > conf.WaveThreshold) {
		class.Wave = true
	}
	return class
}
