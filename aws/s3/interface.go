package s3

import (
	"context"
	"errors"
	"io"
)

var ErrKeyNotFound = errors.New("key not found")

type Opener interface {
	// Open returns a reader over the object's content, or ErrKeyNotFound if the given key doesn't exist.
	// Callers must close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
