package report

import (
	"context"

	"github.com/sirupsen/logrus"

	"framescope/internal/config"
	"framescope/internal/model"
)

// Sink receives a finished report and the files written for it.
type Sink interface {
	Publish(ctx context.Context, r *model.Report, files []string) error
}

// Sinks builds the sinks enabled in conf.
func Sinks(conf *config.ReportConfig, logger *logrus.Entry) ([]Sink, error) {
	var sinks []Sink
	if conf.S3.Enabled {
		s, err := NewS3Sink(&conf.S3, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if conf.NSQ.Enabled {
		s, err := NewNSQSink(&conf.NSQ, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
