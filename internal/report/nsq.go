package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nsqio/go-nsq"
	"github.com/sirupsen/logrus"

	"framescope/internal/config"
	"framescope/internal/model"
)

// EventMessage is the NSQ payload for one consolidated event.
type EventMessage struct {
	ReportId string       `json:"report_id"`
	Video    string       `json:"video"`
	Family   model.Family `json:"family"`
	// Color is the marker color class of blob and indicator events.
	Color string      `json:"color,omitempty"`
	Event model.Event `json:"event"`
}

// EventMessages flattens a report into messages in family order.
func EventMessages(r *model.Report) []EventMessage {
	var msgs []EventMessage
	for _, family := range model.Families {
		for _, e := range r.Families[family] {
			msgs = append(msgs, EventMessage{
				ReportId: r.Id,
				Video:    r.Metadata.Path,
				Family:   family,
				Color:    e.Kind.BlobClass(),
				Event:    e,
			})
		}
	}
	return msgs
}

// NSQSink publishes every event of a report to one topic.
type NSQSink struct {
	topic    string
	producer *nsq.Producer
	logger   *logrus.Entry
}

func NewNSQSink(conf *config.NSQConfig, logger *logrus.Entry) (*NSQSink, error) {
	producer, err := nsq.NewProducer(conf.NSQDAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create NSQ producer failed: %w", err)
	}
	return &NSQSink{topic: conf.Topic, producer: producer, logger: logger.WithField("sink", "nsq")}, nil
}

func (s *NSQSink) Publish(ctx context.Context, r *model.Report, files []string) error {
	msgs := EventMessages(r)
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal event message error: %w", err)
		}
		if err := s.producer.Publish(s.topic, data); err != nil {
			return fmt.Errorf("publish to NSQ failed: %w", err)
		}
	}
	s.logger.Infof("published %d events to %s", len(msgs), s.topic)
	return nil
}

func (s *NSQSink) Close() error {
	s.producer.Stop()
	return nil
}
