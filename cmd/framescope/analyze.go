package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"framescope/internal/config"
	"framescope/internal/pipeline"
	"framescope/internal/report"
	"framescope/pkg/log"
)

var (
	outputDir string
	noHTML    bool
	stride    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video>",
	Short: "Analyze a video and write its event report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyze(args[0])
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Report directory, overrides report.outputDir")
	analyzeCmd.Flags().BoolVar(&noHTML, "no-html", false, "Skip the HTML report")
	analyzeCmd.Flags().IntVar(&stride, "stride", 0, "Motion frame stride, overrides analysis.frameStride")
}

func runAnalyze(videoPath string) {
	conf, err := config.LoadConfig(configFile)
	if err != nil {
		logrus.Fatal("initConfig error, ", err.Error())
	}
	if outputDir != "" {
		conf.Report.OutputDir = outputDir
	}
	if noHTML {
		conf.Report.HTML = false
	}
	if stride > 0 {
		conf.Analysis.FrameStride = stride
	}
	if err := conf.Validate(); err != nil {
		logrus.Fatal(err)
	}

	ctx, cancel := context.WithCancel(log.WithRunId(context.Background(), uuid.New().String()))
	defer cancel()
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-termChan
		logrus.Infof("analysis is shutting down...")
		cancel()
	}()

	src, err := pipeline.OpenVideo(videoPath, conf.Analysis.FrameRate)
	if err != nil {
		logrus.WithError(err).Fatalf("open video")
	}
	defer src.Close()

	p := pipeline.New(ctx, conf)
	defer p.Close()
	rep, err := p.Run(ctx, src)
	if err != nil {
		logrus.WithError(err).Fatalf("analysis failed")
	}

	logger := log.GetLogger(ctx).WithField(log.FieldVideo, videoPath)
	files, err := report.Write(rep, conf.Report.OutputDir, conf.Report.HTML)
	if err != nil {
		logger.WithError(err).Fatalf("write report")
	}
	files = append(files, rep.Snapshots...)
	for _, f := range files {
		logger.Infof("wrote %s", f)
	}

	sinks, err := report.Sinks(&conf.Report, logger)
	if err != nil {
		logger.WithError(err).Fatalf("create report sinks")
	}
	for _, sink := range sinks {
		if err := sink.Publish(ctx, rep, files); err != nil {
			logger.WithError(err).Errorf("publish report")
		}
		if c, ok := sink.(io.Closer); ok {
			c.Close()
		}
	}
}
