package pipeline

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"framescope/internal/config"
	"framescope/internal/detect"
	"framescope/internal/model"
	"framescope/internal/vision"
)

// analyzedFrame is a frame with its grayscale copy.
type analyzedFrame struct {
	*Frame
	gray gocv.Mat
}

func newAnalyzedFrame(f *Frame) (*analyzedFrame, error) {
	gray, err := vision.Gray(f.Mat)
	if err != nil {
		return nil, err
	}
	return &analyzedFrame{Frame: f, gray: gray}, nil
}

func (f *analyzedFrame) Close() {
	f.gray.Close()
	f.Mat.Close()
}

// PairResult holds the detections of one frame pair grouped by family.
// Within a family detections share the pair timestamp.
type PairResult struct {
	Detections map[model.Family][]model.RawDetection
	Blobs      []vision.Blob
}

func (r *PairResult) add(family model.Family, d model.RawDetection) {
	r.Detections[family] = append(r.Detections[family], d)
}

type familyTask struct {
	family model.Family
	run    func(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error
}

type familyOutput struct {
	detections []model.RawDetection
	field      *detect.MotionField
	grid       *detect.PerturbationClass
	blobs      []vision.Blob
}

// Analyzer runs the enabled detector families over frame pairs. Families
// share no mutable state and may run concurrently for the same pair.
type Analyzer struct {
	conf       *config.Config
	flow       *vision.FlowEstimator
	matcher    *vision.FeatureMatcher
	classifier *detect.MotionClassifier
	prober     *vision.IndicatorProber
	blobs      *vision.BlobFinder
	particles  *vision.ParticleCounter
	ui         *vision.UIFinder
	tasks      []familyTask
	logger     *logrus.Entry
}

func NewAnalyzer(conf *config.Config, logger *logrus.Entry) *Analyzer {
	a := &Analyzer{
		conf:       conf,
		flow:       vision.NewFlowEstimator(conf.Motion.Farneback),
		classifier: detect.NewMotionClassifier(&conf.Motion),
		prober:     vision.NewIndicatorProber(&conf.Indicators),
		blobs:      vision.NewBlobFinder(&conf.Blobs),
		particles:  vision.NewParticleCounter(&conf.Particles),
		ui:         vision.NewUIFinder(&conf.UI),
		logger:     logger,
	}
	if conf.Motion.Matcher.Enabled {
		a.matcher = vision.NewFeatureMatcher(conf.Motion.Matcher)
	}

	a.tasks = append(a.tasks,
		familyTask{family: model.FamilyMotion, run: a.runMotion},
		familyTask{family: model.FamilyPerturbation, run: a.runPerturbation},
	)
	if conf.Indicators.Enabled {
		a.tasks = append(a.tasks, familyTask{family: model.FamilyIndicator, run: a.runIndicators})
	}
	if conf.Blobs.Enabled {
		a.tasks = append(a.tasks, familyTask{family: model.FamilyBlob, run: a.runBlobs})
	}
	if conf.Transitions.Enabled {
		a.tasks = append(a.tasks, familyTask{family: model.FamilyTransition, run: a.runTransition})
	}
	if conf.Particles.Enabled {
		a.tasks = append(a.tasks, familyTask{family: model.FamilyParticles, run: a.runParticles})
	}
	if conf.UI.Enabled {
		a.tasks = append(a.tasks, familyTask{family: model.FamilyUI, run: a.runUI})
	}
	return a
}

func (a *Analyzer) Close() {
	if a.matcher != nil {
		a.matcher.Close()
	}
}

// AnalyzePair runs every family over (prev, next). Any family failure fails
// the whole pair so no family observes partial data.
func (a *Analyzer) AnalyzePair(prev, next *analyzedFrame, pairIndex int) (*PairResult, error) {
	if prev.Mat.Rows() != next.Mat.Rows() || prev.Mat.Cols() != next.Mat.Cols() {
		return nil, fmt.Errorf("%w: frame %d is %dx%d, frame %d is %dx%d", vision.ErrDimensionMismatch,
			prev.Index, prev.Mat.Cols(), prev.Mat.Rows(), next.Index, next.Mat.Cols(), next.Mat.Rows())
	}

	outputs := make([]familyOutput, len(a.tasks))
	errs := make([]error, len(a.tasks))
	if a.conf.Analysis.ParallelFamilies {
		var wg sync.WaitGroup
		for i, task := range a.tasks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = task.run(prev, next, pairIndex, &outputs[i])
			}()
		}
		wg.Wait()
	} else {
		for i, task := range a.tasks {
			errs[i] = task.run(prev, next, pairIndex, &outputs[i])
		}
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.tasks[i].family, err)
		}
	}

	result := &PairResult{Detections: make(map[model.Family][]model.RawDetection)}
	var field *detect.MotionField
	var grid *detect.PerturbationClass
	for i, task := range a.tasks {
		for _, d := range outputs[i].detections {
			result.add(task.family, d)
		}
		if outputs[i].field != nil {
			field = outputs[i].field
		}
		if outputs[i].grid != nil {
			grid = outputs[i].grid
		}
		result.Blobs = append(result.Blobs, outputs[i].blobs...)
	}
	a.addPerturbation(result, next, grid, field)
	return result, nil
}

func detectionAt(f *analyzedFrame, kind model.Kind, magnitude float64) model.RawDetection {
	return model.RawDetection{
		FrameIndex: f.Index,
		Timestamp:  f.Timestamp,
		Kind:       kind,
		Magnitude:  magnitude,
	}
}

func frameCenter(f *analyzedFrame) image.Point {
	return image.Pt(f.Mat.Cols()/2, f.Mat.Rows()/2)
}

func (a *Analyzer) runMotion(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error {
	if pairIndex%a.conf.Analysis.FrameStride != 0 {
		return nil
	}
	field, err := a.flow.Estimate(prev.gray, next.gray)
	if err != nil {
		return err
	}
	out.field = field

	if !a.conf.Motion.Region.Empty() {
		field = field.Region(a.conf.Motion.Region.Rectangle())
	}
	class := a.classifier.ClassifyField(field, frameCenter(next))
	if class.Kind == model.KindStatic && !a.conf.Motion.EmitStatic {
		return nil
	}

	d := detectionAt(next, class.Kind, class.Stats.AvgMagnitude)
	d.Direction = class.Stats.AvgAngle
	d.RadialFlow = class.Stats.RadialFlow
	d.Label = string(class.Axis)
	if class.Kind.IsZoom() {
		if a.matcher != nil {
			corr, err := a.matcher.Match(prev.gray, next.gray)
			switch {
			case errors.Is(err, vision.ErrInsufficientFeatures):
				a.logger.Debugf("frame %d: %v", next.Index, err)
			case err != nil:
				return err
			default:
				class = detect.Corroborate(class, corr)
				d.Matches = corr.Matches
			}
		}
		d.ZoomFactor = class.ZoomFactor
	}
	d.Confidence = class.Confidence
	out.detections = append(out.detections, d)
	return nil
}

func (a *Analyzer) runPerturbation(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error {
	grid, err := vision.SampleShakeGrid(prev.gray, next.gray, a.conf.Perturbation.GridSize)
	if err != nil {
		return err
	}
	stats, err := grid.Stats()
	if err != nil {
		return err
	}
	class := detect.ClassifyPerturbation(stats, &a.conf.Perturbation)
	out.grid = &class
	return nil
}

// addPerturbation turns the grid class into shake and wave detections,
// falling back to turbulent board-region flow when the grid sees no shake.
func (a *Analyzer) addPerturbation(result *PairResult, next *analyzedFrame, grid *detect.PerturbationClass, field *detect.MotionField) {
	if grid == nil {
		return
	}
	s := grid.Stats
	switch grid.Shake {
	case model.KindShakeStrong:
		result.add(model.FamilyPerturbation, detectionAt(next, grid.Shake, s.MaxShake))
	case "":
	default:
		result.add(model.FamilyPerturbation, detectionAt(next, grid.Shake, s.AvgShake))
	}

	board := a.conf.Perturbation.BoardShake
	if grid.Shake.ShakeSeverity() == 0 && board.Enabled && field != nil {
		region := field
		if !a.conf.Indicators.Board.Empty() {
			region = field.Region(a.conf.Indicators.Board.Rectangle())
		}
		if region.Len() > 0 {
			stats := detect.Summarize(region, frameCenter(next))
			if kind := detect.ClassifyBoardShake(stats, &board); kind != "" {
				d := detectionAt(next, kind, stats.AvgMagnitude)
				d.Confidence = stats.DirectionalVariance
				result.add(model.FamilyPerturbation, d)
			}
		}
	}

	if grid.Wave {
		wave := s.RowWave
		if s.ColWave > wave {
			wave = s.ColWave
		}
		result.add(model.FamilyWave, detectionAt(next, model.KindWave, wave))
	}
}

func (a *Analyzer) runIndicators(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error {
	hits, err := a.prober.Probe(next.Mat)
	if err != nil {
		return err
	}
	for _, hit := range hits {
		d := detectionAt(next, model.BlobKind(hit.Range), hit.Fraction)
		d.Confidence = hit.Fraction
		pos, size := hit.Position, hit.Size
		d.Position = &pos
		d.Size = &size
		d.Label = hit.Square
		out.detections = append(out.detections, d)
	}
	return nil
}

func (a *Analyzer) runBlobs(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error {
	blobs, err := a.blobs.Find(next.Mat)
	if err != nil {
		return err
	}
	for _, b := range blobs {
		d := detectionAt(next, model.BlobKind(b.Class), b.Area)
		d.Confidence = b.Circularity
		pos, size := b.Center, b.Size()
		d.Position = &pos
		d.Size = &size
		out.detections = append(out.detections, d)
	}
	out.blobs = blobs
	return nil
}

func (a *Analyzer) runTransition(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error {
	m, err := vision.MeasureTransition(prev.Mat, next.Mat, prev.gray, next.gray)
	if err != nil {
		return err
	}
	kind, magnitude, ok := detect.ClassifyTransition(m.MeanAbsDiff, m.BrightnessDelta, &a.conf.Transitions)
	if !ok {
		return nil
	}
	out.detections = append(out.detections, detectionAt(next, kind, magnitude))
	return nil
}

func (a *Analyzer) runParticles(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error {
	counts, err := a.particles.Count(prev.Mat, next.Mat)
	if err != nil {
		return err
	}
	for _, burst := range detect.ClassifyParticles(counts, &a.conf.Particles) {
		out.detections = append(out.detections, detectionAt(next, burst.Kind, float64(burst.Count)))
	}
	return nil
}

func (a *Analyzer) runUI(prev, next *analyzedFrame, pairIndex int, out *familyOutput) error {
	elements, err := a.ui.Find(next.gray)
	if err != nil {
		return err
	}
	for _, e := range elements {
		d := detectionAt(next, e.Kind, e.Area)
		d.Confidence = e.AspectRatio()
		pos, size := e.Position(), e.Size()
		d.Position = &pos
		d.Size = &size
		out.detections = append(out.detections, d)
	}
	return nil
}

// SampleTheme measures the color theme of f.
func SampleTheme(f *Frame) (model.ThemeSample, error) {
	theme, err := vision.SampleTheme(f.Mat)
	if err != nil {
		return model.ThemeSample{}, err
	}
	return model.ThemeSample{
		FrameIndex:    f.Index,
		Timestamp:     f.Timestamp,
		DominantHue:   theme.DominantHue,
		AvgSaturation: theme.Saturation,
		AvgBrightness: theme.Brightness,
		Theme:         theme.Name,
	}, nil
}
