package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"framescope/internal/config"
	"framescope/internal/model"
)

// S3Sink uploads report files to an S3 compatible bucket.
type S3Sink struct {
	conf   *config.S3Config
	cli    *minio.Client
	logger *logrus.Entry
}

func NewS3Sink(conf *config.S3Config, logger *logrus.Entry) (*S3Sink, error) {
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}
	cli, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKeyID, conf.SecretAccessKey, ""),
		Secure: conf.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	return &S3Sink{conf: conf, cli: cli, logger: logger.WithField("sink", "s3")}, nil
}

// ObjectKey places a report file under <prefix>/<report id>/.
func ObjectKey(prefix, reportId, localPath string) string {
	return strings.TrimPrefix(path.Join(prefix, reportId, path.Base(localPath)), "/")
}

func contentType(localPath string) string {
	switch strings.ToLower(path.Ext(localPath)) {
	case ".json":
		return "application/json"
	case ".html", ".htm":
		return "text/html"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func (s *S3Sink) Publish(ctx context.Context, r *model.Report, files []string) error {
	for _, f := range files {
		key := ObjectKey(s.conf.Prefix, r.Id, f)
		if err := s.upload(ctx, f, key); err != nil {
			return err
		}
		s.logger.Infof("uploaded %s to %s/%s", f, s.conf.UrlPrefix(), key)
	}
	return nil
}

func (s *S3Sink) upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("get file info failed: %w", err)
	}

	_, err = s.cli.PutObject(ctx, s.conf.Bucket, key, file, fileInfo.Size(),
		minio.PutObjectOptions{ContentType: contentType(localPath)})
	if err != nil {
		return fmt.Errorf("put object to minio failed: %w", err)
	}
	return nil
}
