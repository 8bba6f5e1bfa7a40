package vision

import (
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
	"framescope/internal/model"
)

var (
	black  = color.RGBA{0, 0, 0, 0}
	white  = color.RGBA{255, 255, 255, 0}
	red    = color.RGBA{255, 0, 0, 0}
	yellow = color.RGBA{255, 255, 0, 0}
	navy   = color.RGBA{0, 0, 150, 0}
)

func solidFrame(t *testing.T, width, height int, c color.RGBA) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), height, width, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func grayOf(t *testing.T, m gocv.Mat) gocv.Mat {
	t.Helper()
	g, err := Gray(m)
	if err != nil {
		t.Fatalf("Gray: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestFlowEstimator_IdenticalFrames(t *testing.T) {
	frame := solidFrame(t, 96, 64, black)
	gocv.Rectangle(&frame, image.Rect(20, 20, 60, 44), white, -1)
	gray := grayOf(t, frame)

	field, err := NewFlowEstimator(config.DefaultConfig().Motion.Farneback).Estimate(gray, gray)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if field.Width != 96 || field.Height != 64 {
		t.Fatalf("field is %dx%d, want 96x64", field.Width, field.Height)
	}
	// identical inputs solve to an exactly zero displacement everywhere
	if avg := field.AverageMagnitude(); avg != 0 {
		t.Fatalf("average magnitude = %v, want 0", avg)
	}

	class := detect.NewMotionClassifier(&config.DefaultConfig().Motion).ClassifyField(field, image.Pt(48, 32))
	if class.Kind != model.KindStatic || class.Stats.AvgMagnitude != 0 {
		t.Fatalf("class = %+v, want static with zero magnitude", class)
	}
}

func TestFlowEstimator_Errors(t *testing.T) {
	est := NewFlowEstimator(config.DefaultConfig().Motion.Farneback)
	a := grayOf(t, solidFrame(t, 64, 48, black))
	b := grayOf(t, solidFrame(t, 48, 64, black))
	if _, err := est.Estimate(a, b); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := est.Estimate(a, empty); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("err = %v, want ErrEmptyFrame", err)
	}
}

func TestGrayAndHSV_EmptyFrame(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := Gray(empty); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("Gray err = %v, want ErrEmptyFrame", err)
	}
	if _, err := HSV(empty); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("HSV err = %v, want ErrEmptyFrame", err)
	}
}

type texturePatch struct {
	rect  image.Rectangle
	level uint8
}

// texture scatters seeded gray rectangles inside the central part of a
// width x height frame, leaving a margin that a small shift never crosses.
func texture(width, height, margin int) []texturePatch {
	rng := rand.New(rand.NewSource(7))
	patches := make([]texturePatch, 60)
	for i := range patches {
		w, h := 8+rng.Intn(40), 8+rng.Intn(40)
		x := margin + rng.Intn(width-2*margin-w)
		y := margin + rng.Intn(height-2*margin-h)
		patches[i] = texturePatch{
			rect:  image.Rect(x, y, x+w, y+h),
			level: uint8(40 + rng.Intn(216)),
		}
	}
	return patches
}

func drawTexture(t *testing.T, width, height int, patches []texturePatch, shift image.Point) gocv.Mat {
	t.Helper()
	m := solidFrame(t, width, height, black)
	for _, p := range patches {
		c := color.RGBA{p.level, p.level, p.level, 0}
		gocv.Rectangle(&m, p.rect.Add(shift), c, -1)
	}
	return grayOf(t, m)
}

func TestFeatureMatcher_ShiftedTexture(t *testing.T) {
	conf := config.DefaultConfig().Motion.Matcher
	m := NewFeatureMatcher(conf)
	defer m.Close()

	patches := texture(320, 240, 40)
	shift := image.Pt(6, 4)
	prev := drawTexture(t, 320, 240, patches, image.Point{})
	next := drawTexture(t, 320, 240, patches, shift)

	corr, err := m.Match(prev, next)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if corr.Matches < conf.MinMatches {
		t.Fatalf("matches = %d, want at least %d", corr.Matches, conf.MinMatches)
	}
	want := math.Hypot(float64(shift.X), float64(shift.Y))
	if math.Abs(corr.MeanDistance-want) > 1.5 {
		t.Fatalf("mean distance = %v, want about %v", corr.MeanDistance, want)
	}
}

func TestFeatureMatcher_FlatFramesAreInsufficient(t *testing.T) {
	m := NewFeatureMatcher(config.DefaultConfig().Motion.Matcher)
	defer m.Close()

	gray := grayOf(t, solidFrame(t, 128, 96, black))
	if _, err := m.Match(gray, gray); !errors.Is(err, ErrInsufficientFeatures) {
		t.Fatalf("err = %v, want ErrInsufficientFeatures", err)
	}
}

func TestSampleShakeGrid(t *testing.T) {
	prev := grayOf(t, solidFrame(t, 80, 80, black))
	nextFrame := solidFrame(t, 80, 80, black)
	gocv.Rectangle(&nextFrame, image.Rect(0, 0, 10, 10), white, -1)
	next := grayOf(t, nextFrame)

	grid, err := SampleShakeGrid(prev, next, 8)
	if err != nil {
		t.Fatalf("SampleShakeGrid: %v", err)
	}
	if v := grid.At(0, 0); v < 250 {
		t.Fatalf("cell (0,0) = %v, want about 255", v)
	}
	if v := grid.At(4, 4); v != 0 {
		t.Fatalf("cell (4,4) = %v, want 0", v)
	}

	stats, err := grid.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	class := detect.ClassifyPerturbation(stats, &config.DefaultConfig().Perturbation)
	if class.Shake != model.KindShakeStrong {
		t.Fatalf("shake = %q, want strong", class.Shake)
	}
}

func TestSampleShakeGrid_TooSmall(t *testing.T) {
	g := grayOf(t, solidFrame(t, 4, 4, black))
	if _, err := SampleShakeGrid(g, g, 8); err == nil {
		t.Fatalf("expected error for a frame smaller than the grid")
	}
}

func TestSquareName(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "a8"},
		{7, 7, "h1"},
		{4, 4, "e4"},
		{7, 0, "a1"},
	}
	for _, tc := range tests {
		if got := SquareName(tc.row, tc.col, 8); got != tc.want {
			t.Errorf("SquareName(%d, %d) = %s, want %s", tc.row, tc.col, got, tc.want)
		}
	}
}

func TestIndicatorProber_Probe(t *testing.T) {
	conf := config.DefaultConfig().Indicators
	prober := NewIndicatorProber(&conf)

	frame := solidFrame(t, 600, 700, black)
	yellowProbe := prober.ProbeRect(4, 4)
	gocv.Rectangle(&frame, yellowProbe, yellow, -1)
	redProbe := prober.ProbeRect(0, 7)
	gocv.Rectangle(&frame, redProbe, red, -1)

	hits, err := prober.Probe(frame)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %+v, want 2", hits)
	}
	got := map[string]IndicatorHit{}
	for _, h := range hits {
		got[h.Square] = h
	}
	if h, ok := got["e4"]; !ok || h.Range != "yellow" || h.Fraction < 0.99 {
		t.Fatalf("e4 hit = %+v", h)
	}
	if h, ok := got["h8"]; !ok || h.Range != "red" {
		t.Fatalf("h8 hit = %+v, want red through the hue wrap", h)
	}
}

func TestBlobFinder_Find(t *testing.T) {
	conf := config.DefaultConfig().Blobs
	finder := NewBlobFinder(&conf)

	frame := solidFrame(t, 200, 200, black)
	gocv.Circle(&frame, image.Pt(100, 120), 20, red, -1)
	// too small
	gocv.Circle(&frame, image.Pt(30, 180), 5, red, -1)
	// elongated
	gocv.Rectangle(&frame, image.Rect(10, 20, 190, 24), yellow, -1)

	blobs, err := finder.Find(frame)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(blobs) != 1 {
		t.Fatalf("blobs = %+v, want 1", blobs)
	}
	b := blobs[0]
	if b.Class != "red" {
		t.Fatalf("class = %s, want red", b.Class)
	}
	if dx, dy := b.Center.X-100, b.Center.Y-120; dx*dx+dy*dy > 4 {
		t.Fatalf("center = %v, want about (100,120)", b.Center)
	}
	if b.Circularity <= conf.MinCircularity {
		t.Fatalf("circularity = %v", b.Circularity)
	}

	dir := t.TempDir()
	p, err := WriteSnapshot(frame, b, dir, 12)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(p); err != nil || filepath.Dir(p) != dir {
		t.Fatalf("snapshot %s: %v", p, err)
	}
}

func TestMeasureTransition(t *testing.T) {
	dark := solidFrame(t, 64, 48, black)
	light := solidFrame(t, 64, 48, white)

	m, err := MeasureTransition(dark, light, grayOf(t, dark), grayOf(t, light))
	if err != nil {
		t.Fatalf("MeasureTransition: %v", err)
	}
	if m.MeanAbsDiff < 254 || m.BrightnessDelta < 254 {
		t.Fatalf("measure = %+v, want full-range change", m)
	}
	kind, _, ok := detect.ClassifyTransition(m.MeanAbsDiff, m.BrightnessDelta, &config.DefaultConfig().Transitions)
	if !ok || kind != model.KindFadeIn {
		t.Fatalf("kind = %q, want fade_in", kind)
	}

	m, err = MeasureTransition(dark, dark, grayOf(t, dark), grayOf(t, dark))
	if err != nil {
		t.Fatalf("MeasureTransition: %v", err)
	}
	if m.MeanAbsDiff != 0 || m.BrightnessDelta != 0 {
		t.Fatalf("identical frames measured %+v", m)
	}
}

func TestSampleTheme(t *testing.T) {
	theme, err := SampleTheme(solidFrame(t, 32, 32, navy))
	if err != nil {
		t.Fatalf("SampleTheme: %v", err)
	}
	if theme.DominantHue != 120 || theme.Name != "cool" {
		t.Fatalf("theme = %+v, want hue 120 cool", theme)
	}

	theme, err = SampleTheme(solidFrame(t, 32, 32, black))
	if err != nil {
		t.Fatalf("SampleTheme: %v", err)
	}
	if theme.Name != "dark" {
		t.Fatalf("theme = %+v, want dark", theme)
	}
}

func TestParticleCounter_Count(t *testing.T) {
	conf := config.DefaultConfig().Particles
	counter := NewParticleCounter(&conf)

	prev := solidFrame(t, 200, 200, black)
	next := solidFrame(t, 200, 200, black)
	for i := 0; i < 15; i++ {
		gocv.Circle(&next, image.Pt(20+11*i, 20), 3, white, -1)
	}
	for i := 0; i < 8; i++ {
		x := 10 + 22*i
		gocv.Rectangle(&next, image.Rect(x, 100, x+10, 110), red, -1)
	}

	counts, err := counter.Count(prev, next)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	want := detect.ParticleCounts{Sparkles: 15, Confetti: 8, Spots: 23}
	if counts != want {
		t.Fatalf("counts = %+v, want %+v", counts, want)
	}
	bursts := detect.ClassifyParticles(counts, &conf)
	if len(bursts) != 3 || bursts[2].Kind != model.KindParticles || bursts[2].Count != 23 {
		t.Fatalf("bursts = %+v", bursts)
	}

	counts, err = counter.Count(next, next)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts.Spots != 0 {
		t.Fatalf("identical frames counted %d new spots", counts.Spots)
	}
}

func TestUIFinder_Find(t *testing.T) {
	conf := config.DefaultConfig().UI
	finder := NewUIFinder(&conf)

	frame := solidFrame(t, 320, 240, black)
	gocv.Rectangle(&frame, image.Rect(20, 20, 80, 80), white, -1)
	gocv.Rectangle(&frame, image.Rect(60, 150, 260, 190), white, -1)
	// too small
	gocv.Rectangle(&frame, image.Rect(280, 20, 290, 30), white, -1)

	elements, err := finder.Find(grayOf(t, frame))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := map[model.Kind]UIElement{}
	for _, e := range elements {
		got[e.Kind] = e
	}
	if len(elements) != 2 || len(got) != 2 {
		t.Fatalf("elements = %+v, want a button and a text bar", elements)
	}
	button, ok := got[model.KindButtonSquare]
	if p := button.Position(); !ok || abs(p.X-20) > 2 || abs(p.Y-20) > 2 {
		t.Fatalf("button = %+v", button)
	}
	bar, ok := got[model.KindTextBar]
	if s := bar.Size(); !ok || abs(s.Width-200) > 4 || abs(s.Height-40) > 4 {
		t.Fatalf("text bar = %+v", bar)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := finder.Find(empty); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("err = %v, want ErrEmptyFrame", err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
