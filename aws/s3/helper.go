package s3

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/constants"
)

// ObjectLocation is a single object named by an s3://<bucket>/<key> URL.
type ObjectLocation struct {
	Bucket string `errorTxt:"bucket name" mandatory:"yes"`
	Key    string `errorTxt:"object key" mandatory:"yes"`
}

func (o ObjectLocation) String() string {
	return constants.ConnectionTypeS3 + "://" + o.Bucket + "/" + o.Key
}

// IsS3Url returns true if path uses the s3:// scheme.
func IsS3Url(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), constants.ConnectionTypeS3+"://")
}

// ParseS3Url expects rawUrl to be of the form s3://<bucket>/<key>.
// It returns an error if the scheme is wrong or the bucket or key is missing.
func ParseS3Url(rawUrl string) (retval ObjectLocation, err error) {
	s3url, err := url.Parse(rawUrl)
	if err != nil {
		return retval, errors.Wrap(err, "error parsing S3 URL")
	}
	if !strings.EqualFold(s3url.Scheme, constants.ConnectionTypeS3) {
		return retval, errors.Errorf("expected S3 URL scheme %q but got %q", constants.ConnectionTypeS3, s3url.Scheme)
	}
	retval.Bucket = s3url.Host
	if retval.Bucket == "" {
		return retval, errors.New("S3 URL is missing a bucket name")
	}
	retval.Key = strings.TrimLeft(s3url.Path, "/")
	if retval.Key == "" {
		return retval, errors.New("S3 URL is missing an object key")
	}
	return
}
