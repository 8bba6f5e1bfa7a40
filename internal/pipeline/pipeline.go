package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"framescope/internal/config"
	"framescope/internal/consolidate"
	"framescope/internal/model"
	"framescope/internal/vision"
	"framescope/pkg/log"
)

const (
	frameBuffer      = 10
	progressInterval = 5 * time.Second
)

type Pipeline struct {
	conf          *config.Config
	analyzer      *Analyzer
	consolidators map[model.Family]*consolidate.Consolidator
	logger        *logrus.Entry

	// blob centers seen in the previous pair, for snapshotting new ones
	lastBlobs map[model.Point]bool
}

func New(ctx context.Context, conf *config.Config) *Pipeline {
	logger := log.ComponentLogger(ctx, "pipeline")
	p := &Pipeline{
		conf:          conf,
		analyzer:      NewAnalyzer(conf, logger),
		consolidators: make(map[model.Family]*consolidate.Consolidator, len(model.Families)),
		logger:        logger,
		lastBlobs:     map[model.Point]bool{},
	}
	for _, family := range model.Families {
		p.consolidators[family] = consolidate.New(family, mergeConfig(conf, family), logger)
	}
	return p
}

func mergeConfig(conf *config.Config, family model.Family) config.MergeConfig {
	switch family {
	case model.FamilyMotion:
		return conf.Motion.Merge
	case model.FamilyPerturbation:
		return conf.Perturbation.Merge
	case model.FamilyWave:
		return conf.Perturbation.WaveMerge
	case model.FamilyIndicator:
		return conf.Indicators.Merge
	case model.FamilyBlob:
		return conf.Blobs.Merge
	case model.FamilyParticles:
		return conf.Particles.Merge
	case model.FamilyUI:
		return conf.UI.Merge
	default:
		return conf.Transitions.Merge
	}
}

func (p *Pipeline) Close() {
	p.analyzer.Close()
}

// Run consumes src to the end and returns the consolidated report. A
// source without frames yields a report with empty families.
func (p *Pipeline) Run(ctx context.Context, src FrameSource) (*model.Report, error) {
	meta := src.Metadata()
	logger := p.logger.WithField(log.FieldVideo, meta.Path)
	logger.Infof("analysis started: %dx%d @ %.2f FPS, %d frames", meta.Width, meta.Height, meta.FrameRate, meta.TotalFrames)

	report := model.NewReport(uuid.New().String())
	report.AnalysisDate = time.Now().Format(time.RFC3339)
	report.Metadata = meta

	if p.conf.Blobs.Snapshots {
		if err := os.MkdirAll(p.conf.SnapshotDir(), 0755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frameChan := make(chan *Frame, frameBuffer)
	var readErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(frameChan)
		readErr = readFrames(ctx, src, frameChan)
	}()

	err := p.consume(ctx, frameChan, report, logger)
	cancel()
	// drain so the reader can exit and nothing leaks
	for f := range frameChan {
		f.Mat.Close()
	}
	wg.Wait()
	if err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}

	for _, family := range model.Families {
		c := p.consolidators[family]
		report.Families[family] = c.Flush()
		report.RawCounts[family] = c.Observed()
	}
	logger.Infof("analysis finished: %d frames, %d skipped pairs, %d events",
		report.FramesRead, report.SkippedPairs, report.EventCount())
	return report, nil
}

func readFrames(ctx context.Context, src FrameSource, frameChan chan<- *Frame) error {
	for {
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		select {
		case frameChan <- f:
		case <-ctx.Done():
			f.Mat.Close()
			return nil
		}
	}
}

func (p *Pipeline) consume(ctx context.Context, frameChan <-chan *Frame, report *model.Report, logger *logrus.Entry) error {
	var prev *analyzedFrame
	defer func() {
		if prev != nil {
			prev.Close()
		}
	}()

	pairs := 0
	pairCount := 0
	totalPairTime := time.Duration(0)
	lastLogTime := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var f *Frame
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok = <-frameChan:
		}
		if !ok {
			return nil
		}
		report.FramesRead++

		cur, err := newAnalyzedFrame(f)
		if err != nil {
			logger.WithError(err).Warnf("frame %d unreadable", f.Index)
			f.Mat.Close()
			continue
		}
		p.sampleTheme(cur, report, logger)

		if prev != nil {
			start := time.Now()
			if err := p.analyzePair(prev, cur, pairs, report, logger); err != nil {
				cur.Close()
				return err
			}
			pairs++
			pairCount++
			totalPairTime += time.Since(start)
			prev.Close()
		}
		prev = cur

		if time.Since(lastLogTime) > progressInterval && pairCount > 0 {
			logger.Infof("processed %d frame pairs in %v, avg pair time: %v", pairCount, totalPairTime, totalPairTime/time.Duration(pairCount))
			lastLogTime = time.Now()
			pairCount = 0
			totalPairTime = time.Duration(0)
		}
	}
}

func (p *Pipeline) sampleTheme(f *analyzedFrame, report *model.Report, logger *logrus.Entry) {
	if !p.conf.Themes.Enabled || f.Index%p.conf.Themes.SampleEvery != 0 {
		return
	}
	sample, err := SampleTheme(f.Frame)
	if err != nil {
		logger.WithError(err).Warnf("frame %d theme sample failed", f.Index)
		return
	}
	report.Themes = append(report.Themes, sample)
}

// analyzePair feeds one pair's detections to the consolidators. A failed
// pair contributes nothing; only a strict dimension mismatch or an
// out-of-order detection stops the run.
func (p *Pipeline) analyzePair(prev, cur *analyzedFrame, pairIndex int, report *model.Report, logger *logrus.Entry) error {
	result, err := p.analyzer.AnalyzePair(prev, cur, pairIndex)
	if err != nil {
		if errors.Is(err, vision.ErrDimensionMismatch) && p.conf.Analysis.StrictDimensions {
			return err
		}
		report.SkippedPairs++
		logger.WithError(err).Warnf("skipped frame pair %d-%d", prev.Index, cur.Index)
		return nil
	}

	for _, family := range model.Families {
		for _, d := range result.Detections[family] {
			if err := p.consolidators[family].Observe(d); err != nil {
				return err
			}
		}
	}
	if p.conf.Blobs.Snapshots {
		report.Snapshots = append(report.Snapshots, p.snapshotNewBlobs(cur, result.Blobs, logger)...)
	}
	return nil
}

// snapshotNewBlobs writes a crop of every blob absent from the previous
// pair and returns the written paths.
func (p *Pipeline) snapshotNewBlobs(f *analyzedFrame, blobs []vision.Blob, logger *logrus.Entry) []string {
	var written []string
	seen := make(map[model.Point]bool, len(blobs))
	for _, b := range blobs {
		seen[b.Center] = true
		if p.lastBlobs[b.Center] {
			continue
		}
		path, err := vision.WriteSnapshot(f.Mat, b, p.conf.SnapshotDir(), f.Index)
		if err != nil {
			logger.WithError(err).Warn("blob snapshot failed")
			continue
		}
		written = append(written, path)
	}
	p.lastBlobs = seen
	return written
}
