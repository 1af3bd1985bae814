package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/yungbote/coursechat-backend/internal/platform/gcp"
)

// GCSStore keeps blobs as objects in one bucket, keyed by the blob name.
type GCSStore struct {
	bucket gcp.BucketService
}

func NewGCSStore(bucket gcp.BucketService) *GCSStore {
	return &GCSStore{bucket: bucket}
}

func (s *GCSStore) Put(ctx context.Context, name string, r io.Reader, contentType string) (int64, error) {
	if err := ValidName(name); err != nil {
		return 0, err
	}
	if contentType == "" {
		contentType = ContentTypeForName(name)
	}
	n, err := s.bucket.UploadFile(ctx, name, r, contentType)
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return 0, fmt.Errorf("%w: %q", ErrExists, name)
		}
		return 0, err
	}
	return n, nil
}

func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	rc, err := s.bucket.DownloadFile(ctx, name)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return rc, err
}

func (s *GCSStore) Delete(ctx context.Context, name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	err := s.bucket.DeleteFile(ctx, name)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return err
}

func (s *GCSStore) URL(name string) string {
	return s.bucket.GetPublicURL(name)
}

func (s *GCSStore) Close() error {
	return s.bucket.Close()
}
