package log

import (
	"context"
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

const (
	CtxRunId       = "run"
	FieldVideo     = "video"
	FieldFamily    = "family"
	FieldComponent = "component"
)

func InitLog(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Errorf("failed to parse log level: %v, err: %v", logLevel, err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetReportCaller(true)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		DisableColors:   true,
		DisableQuote:    true,
		CallerPrettyfier: func(frame *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", path.Base(frame.File), frame.Line)
		},
	})
}

// WithRunId stores the analysis run id so every logger derived from ctx
// carries it.
func WithRunId(ctx context.Context, runId string) context.Context {
	return context.WithValue(ctx, CtxRunId, runId)
}

func GetLogger(c context.Context) *logrus.Entry {
	v := c.Value(CtxRunId)
	if v != nil {
		return logrus.WithFields(logrus.Fields{
			CtxRunId: v,
		})
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func NewLogger() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

func ComponentLogger(c context.Context, component string) *logrus.Entry {
	return GetLogger(c).WithField(FieldComponent, component)
}
