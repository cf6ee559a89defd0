package s3

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// NewBasicClient returns a client for bucket in region using the default AWS credential chain.
func NewBasicClient(bucket, region, prefix string) (*BasicClient, error) {
	awsConfig := aws.NewConfig()
	if region != "" {
		awsConfig.Region = aws.String(region)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "error creating AWS session")
	}
	return NewBasicClientWithAPI(bucket, region, prefix, s3.New(sess)), nil
}

// NewBasicClientWithAPI returns a client that uses the supplied S3 API, which lets tests use their own.
func NewBasicClientWithAPI(bucket, region, prefix string, api s3iface.S3API) *BasicClient {
	return &BasicClient{
		bucket: bucket,
		region: region,
		prefix: prefix,
		api:    api,
	}
}

type BasicClient struct {
	region string
	bucket string
	prefix string
	api    s3iface.S3API
}

func (s *BasicClient) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	res, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
	})
	if err != nil {
		var awsErr awserr.Error
		if errors.As(err, &awsErr) && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrapf(err, "error reading s3://%v/%v", s.bucket, s.getKeyWithPrefix(key))
	}
	return res.Body, nil
}

func (s *BasicClient) getKeyWithPrefix(key string) string {
	if s.prefix != "" {
		return strings.TrimRight(s.prefix, "/") + "/" + key // ensure trailing slash after prefix.
	}
	return key
}
