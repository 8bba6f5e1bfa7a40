package detect

import (
	"testing"

	"framescope/internal/config"
	"framescope/internal/model"
)

func defaultPerturbationConfig() *config.PerturbationConfig {
	conf := config.DefaultConfig().Perturbation
	return &conf
}

func filledGrid(size int, f func(r, c int) float64) ShakeGrid {
	g := NewShakeGrid(size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			g.Set(r, c, f(r, c))
		}
	}
	return g
}

func TestShakeGrid_Stats(t *testing.T) {
	g := filledGrid(2, func(r, c int) float64 { return float64(r*2 + c) })
	stats, err := g.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	// cells 0 1 / 2 3
	if stats.AvgShake != 1.5 || stats.MaxShake != 3 {
		t.Fatalf("avg/max = %v/%v, want 1.5/3", stats.AvgShake, stats.MaxShake)
	}
	if stats.Variance != 1.25 {
		t.Fatalf("variance = %v, want 1.25", stats.Variance)
	}
	if stats.RowWave != 1 || stats.ColWave != 2 {
		t.Fatalf("row/col wave = %v/%v, want 1/2", stats.RowWave, stats.ColWave)
	}
}

func TestShakeGrid_StatsMalformed(t *testing.T) {
	if _, err := (ShakeGrid{Size: 3, Cells: make([]float64, 4)}).Stats(); err == nil {
		t.Fatalf("expected error for malformed grid")
	}
	if _, err := (ShakeGrid{}).Stats(); err == nil {
		t.Fatalf("expected error for empty grid")
	}
}

func TestClassifyPerturbation(t *testing.T) {
	conf := defaultPerturbationConfig()
	tests := []struct {
		name      string
		stats     GridStats
		wantShake model.Kind
		wantWave  bool
	}{
		{
			name:      "strong from a single hot cell",
			stats:     GridStats{MaxShake: 35, AvgShake: 5},
			wantShake: model.KindShakeStrong,
		},
		{
			name:      "strong boundary is exclusive",
			stats:     GridStats{MaxShake: 30, AvgShake: 5},
			wantShake: "",
		},
		{
			name:      "light from average",
			stats:     GridStats{MaxShake: 20, AvgShake: 12},
			wantShake: model.KindShakeLight,
		},
		{
			name:  "quiet",
			stats: GridStats{MaxShake: 8, AvgShake: 2},
		},
		{
			name:     "wave without shake",
			stats:    GridStats{MaxShake: 25, AvgShake: 8, Variance: 150, RowWave: 21},
			wantWave: true,
		},
		{
			name:      "wave with shake",
			stats:     GridStats{MaxShake: 60, AvgShake: 20, Variance: 400, ColWave: 30},
			wantShake: model.KindShakeStrong,
			wantWave:  true,
		},
		{
			name:  "gradients below variance gate",
			stats: GridStats{MaxShake: 25, AvgShake: 8, Variance: 90, RowWave: 25, ColWave: 25},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyPerturbation(tc.stats, conf)
			if got.Shake != tc.wantShake || got.Wave != tc.wantWave {
				t.Fatalf("ClassifyPerturbation = (%q, %v), want (%q, %v)", got.Shake, got.Wave, tc.wantShake, tc.wantWave)
			}
			if got.Empty() != (tc.wantShake == "" && !tc.wantWave) {
				t.Fatalf("Empty() = %v", got.Empty())
			}
		})
	}
}

func TestClassifyPerturbation_StripedGridIsWave(t *testing.T) {
	// alternating columns of 0 and 40 change sharply between neighbours
	g := filledGrid(8, func(r, c int) float64 {
		if c%2 == 0 {
			return 0
		}
		return 40
	})
	stats, err := g.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	got := ClassifyPerturbation(stats, defaultPerturbationConfig())
	if !got.Wave {
		t.Fatalf("expected wave, stats %+v", stats)
	}
	if got.Shake != model.KindShakeStrong {
		t.Fatalf("shake = %q, want strong", got.Shake)
	}
	if stats.ColWave != 0 {
		t.Fatalf("col wave = %v, want 0", stats.ColWave)
	}
}
