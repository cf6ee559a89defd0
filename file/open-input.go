package file

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/aws/s3"
	"github.com/relloyd/visitload/helper"
	"github.com/relloyd/visitload/logger"
)

// S3OpenerFunc returns an object reader for bucket in region.
type S3OpenerFunc func(bucket, region string) (s3.Opener, error)

// DefaultS3Opener uses the AWS default credential chain.
func DefaultS3Opener(bucket, region string) (s3.Opener, error) {
	c, err := s3.NewBasicClient(bucket, region, "")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// InputConfig describes where the visit URLs are read from.
type InputConfig struct {
	Log      logger.Logger
	Path     string       // local file path or s3://<bucket>/<key>; "~" is expanded for local files.
	S3Region string       // used for s3:// paths only.
	S3Opener S3OpenerFunc // nil uses DefaultS3Opener.
}

// OpenInput returns a reader over the input named by cfg.Path.
// Inputs whose name ends ".gz" are decompressed transparently.
// The caller must close the returned reader.
func OpenInput(ctx context.Context, cfg *InputConfig) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if s3.IsS3Url(cfg.Path) {
		loc, err := s3.ParseS3Url(cfg.Path)
		if err != nil {
			return nil, err
		}
		opener := cfg.S3Opener
		if opener == nil {
			opener = DefaultS3Opener
		}
		client, err := opener(loc.Bucket, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		cfg.Log.Info("Reading input from ", loc)
		if rc, err = client.Open(ctx, loc.Key); err != nil {
			return nil, errors.Wrapf(err, "unable to open input %v", loc)
		}
	} else {
		p, err := helper.ExpandPath(cfg.Path)
		if err != nil {
			return nil, err
		}
		cfg.Log.Info("Reading input from file ", p)
		f, err := os.Open(p)
		if err != nil {
			return nil, errors.Wrap(err, "unable to open input file")
		}
		rc = f
	}
	if !strings.HasSuffix(strings.ToLower(cfg.Path), ".gz") {
		return rc, nil
	}
	gz, err := gzip.NewReader(bufio.NewReader(rc))
	if err != nil {
		_ = rc.Close()
		return nil, errors.Wrap(err, "unable to read gzip input")
	}
	return &gzipReadCloser{Reader: gz, underlying: rc}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return gzErr
}
