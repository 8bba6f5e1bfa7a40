// Package consolidate folds a chronological stream of raw detections into
// closed, non-overlapping events, one family at a time.
package consolidate

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"framescope/internal/config"
	"framescope/internal/model"
	"framescope/pkg/log"
)

var ErrOutOfOrder = errors.New("detection earlier than the previous one")

// span is the unit the fold works on: a raw detection is a zero-length
// span holding one instance, a closed event is a span holding many.
type span struct {
	kind       model.Kind
	start      float64
	end        float64
	magnitude  float64
	count      int
	position   *model.Point
	label      string
	zoomFactor float64
}

func detectionSpan(d model.RawDetection) span {
	return span{
		kind:       d.Kind,
		start:      d.Timestamp,
		end:        d.Timestamp,
		magnitude:  d.Magnitude,
		count:      1,
		position:   d.Position,
		label:      d.Label,
		zoomFactor: d.ZoomFactor,
	}
}

func eventSpan(e model.Event) span {
	count := e.InstanceCount
	if count < 1 {
		count = 1
	}
	return span{
		kind:       e.Kind,
		start:      e.StartTime,
		end:        e.EndTime,
		magnitude:  e.PeakMagnitude,
		count:      count,
		position:   e.Position,
		label:      e.Label,
		zoomFactor: e.ZoomFactor,
	}
}

// Consolidator holds the single open event of one family. It keeps only the
// open event and the closed output, never the detection history.
type Consolidator struct {
	family   model.Family
	conf     config.MergeConfig
	current  *model.Event
	events   []model.Event
	lastSeen float64
	observed int
	logger   *logrus.Entry
}

func New(family model.Family, conf config.MergeConfig, logger *logrus.Entry) *Consolidator {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Consolidator{
		family: family,
		conf:   conf,
		events: []model.Event{},
		logger: logger.WithField(log.FieldFamily, family),
	}
}

func (c *Consolidator) Family() model.Family {
	return c.family
}

// Observed is the number of detections folded so far.
func (c *Consolidator) Observed() int {
	return c.observed
}

// Observe folds one detection. Detections must arrive with non-decreasing
// timestamps; an earlier one is rejected with ErrOutOfOrder and leaves the
// state untouched.
func (c *Consolidator) Observe(d model.RawDetection) error {
	return c.observe(detectionSpan(d))
}

func (c *Consolidator) observe(s span) error {
	if c.observed > 0 && s.start < c.lastSeen {
		return fmt.Errorf("%w: %s at %.3fs after %.3fs", ErrOutOfOrder, s.kind, s.start, c.lastSeen)
	}
	c.lastSeen = s.start
	c.observed += s.count

	if c.current == nil {
		c.open(s)
		return nil
	}
	if c.extends(s) {
		cur := c.current
		if s.end > cur.EndTime {
			cur.EndTime = s.end
		}
		if s.magnitude > cur.PeakMagnitude {
			cur.PeakMagnitude = s.magnitude
		}
		if s.zoomFactor != 0 {
			cur.ZoomFactor = s.zoomFactor
		}
		cur.InstanceCount += s.count
		return nil
	}
	c.close()
	c.open(s)
	return nil
}

func (c *Consolidator) extends(s span) bool {
	cur := c.current
	if s.kind != cur.Kind {
		return false
	}
	if s.start-cur.EndTime >= c.conf.Gap {
		return false
	}
	return samePosition(cur.Position, s.position, c.conf.PositionTolerance)
}

func samePosition(a, b *model.Point, tolerance int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return abs(a.X-b.X) <= tolerance && abs(a.Y-b.Y) <= tolerance
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Consolidator) open(s span) {
	var pos *model.Point
	if s.position != nil {
		p := *s.position
		pos = &p
	}
	c.current = &model.Event{
		Kind:          s.kind,
		StartTime:     s.start,
		EndTime:       s.end,
		PeakMagnitude: s.magnitude,
		InstanceCount: s.count,
		Position:      pos,
		Label:         s.label,
		ZoomFactor:    s.zoomFactor,
	}
}

func (c *Consolidator) close() {
	e := *c.current
	e.Duration = e.EndTime - e.StartTime
	c.events = append(c.events, e)
	c.current = nil
	c.logger.Debugf("event closed: %s [%.3f-%.3f] x%d", e.Kind, e.StartTime, e.EndTime, e.InstanceCount)
}

// Events returns the events closed so far; the open event is not included.
func (c *Consolidator) Events() []model.Event {
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Flush closes the open event, if any, and returns every closed event.
func (c *Consolidator) Flush() []model.Event {
	if c.current != nil {
		c.close()
	}
	return c.Events()
}

// Fold consolidates a whole detection list of one family.
func Fold(family model.Family, conf config.MergeConfig, detections []model.RawDetection) ([]model.Event, error) {
	c := New(family, conf, nil)
	for _, d := range detections {
		if err := c.Observe(d); err != nil {
			return nil, err
		}
	}
	return c.Flush(), nil
}

// Refold runs the consolidation again over its own output, each event
// standing in for a single detection that keeps its interval, peak and
// instance count.
func Refold(family model.Family, conf config.MergeConfig, events []model.Event) ([]model.Event, error) {
	c := New(family, conf, nil)
	for _, e := range events {
		if err := c.observe(eventSpan(e)); err != nil {
			return nil, err
		}
	}
	return c.Flush(), nil
}
