package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/platform/gcp"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want StorageProviderBootstrapErrorCode
	}{
		{"invalid mode", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorInvalidMode}, StorageProviderBootstrapErrorInvalidMode},
		{"missing emulator host", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorMissingEmulatorHost}, StorageProviderBootstrapErrorMissingEmulatorHost},
		{"invalid emulator host", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorInvalidEmulatorHost}, StorageProviderBootstrapErrorInvalidEmulatorHost},
		{"connect failed", errors.New("dial tcp: connection refused"), StorageProviderBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStorageProviderBootstrapError(BlobConfig{Backend: BlobBackendGCS}, tc.err)
			var got *StorageProviderBootstrapError
			if !errors.As(err, &got) {
				t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
			}
			if got.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, got.Code)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("cause not preserved: %v", err)
			}
		})
	}
}

func TestResolveBlobStoreLocal(t *testing.T) {
	dir := t.TempDir()
	res, err := resolveBlobStore(logger.Nop(), BlobConfig{Backend: BlobBackendLocal, Dir: dir, PublicPath: "/uploads"})
	if err != nil {
		t.Fatalf("resolveBlobStore: %v", err)
	}
	defer res.Close()
	if res.Remote {
		t.Fatalf("local store must not be remote")
	}
	if _, ok := res.Store.(*blob.LocalStore); !ok {
		t.Fatalf("store: want *blob.LocalStore got=%T", res.Store)
	}
	if got := res.Store.URL("1_a.pdf"); got != "/uploads/1_a.pdf" {
		t.Fatalf("url: got=%q", got)
	}
}

func TestResolveBlobStoreGCSModes(t *testing.T) {
	cases := []struct {
		name     string
		cfg      BlobConfig
		wantMode gcp.ObjectStorageMode
	}{
		{"gcs", BlobConfig{Backend: BlobBackendGCS, Bucket: "b"}, gcp.ObjectStorageModeGCS},
		{"emulator", BlobConfig{Backend: BlobBackendGCSEmulator, Bucket: "b", EmulatorHost: "http://fake-gcs:4443"}, gcp.ObjectStorageModeGCSEmulator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig := newBucketService
			t.Cleanup(func() { newBucketService = orig })

			var captured gcp.BucketConfig
			fake := &testBucketService{}
			newBucketService = func(_ *logger.Logger, cfg gcp.BucketConfig) (gcp.BucketService, error) {
				captured = cfg
				return fake, nil
			}

			res, err := resolveBlobStore(logger.Nop(), tc.cfg)
			if err != nil {
				t.Fatalf("resolveBlobStore: %v", err)
			}
			if !res.Remote {
				t.Fatalf("gcs store should be remote")
			}
			if captured.Storage.Mode != tc.wantMode || captured.Bucket != "b" {
				t.Fatalf("captured: %+v", captured)
			}
			if got := res.Store.URL("1_a.pdf"); got != "https://cdn.test/1_a.pdf" {
				t.Fatalf("url: got=%q", got)
			}
			if err := res.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if !fake.closed {
				t.Fatalf("bucket not closed")
			}
		})
	}
}

func TestResolveBlobStoreEmulatorErrors(t *testing.T) {
	cases := []struct {
		name string
		host string
		want StorageProviderBootstrapErrorCode
	}{
		{"missing host", "", StorageProviderBootstrapErrorMissingEmulatorHost},
		{"invalid host", "not-a-url", StorageProviderBootstrapErrorInvalidEmulatorHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolveBlobStore(logger.Nop(), BlobConfig{Backend: BlobBackendGCSEmulator, Bucket: "b", EmulatorHost: tc.host})
			if got := storageProviderBootstrapErrorCode(err); got != tc.want {
				t.Fatalf("code: want=%q got=%q (err=%v)", tc.want, got, err)
			}
		})
	}
}

func TestResolveBlobStoreConnectFailure(t *testing.T) {
	orig := newBucketService
	t.Cleanup(func() { newBucketService = orig })
	newBucketService = func(*logger.Logger, gcp.BucketConfig) (gcp.BucketService, error) {
		return nil, errors.New("no credentials")
	}

	_, err := resolveBlobStore(logger.Nop(), BlobConfig{Backend: BlobBackendGCS, Bucket: "b"})
	if got := storageProviderBootstrapErrorCode(err); got != StorageProviderBootstrapErrorConnectFailed {
		t.Fatalf("code: want=%q got=%q", StorageProviderBootstrapErrorConnectFailed, got)
	}
}

type testBucketService struct {
	closed bool
}

func (t *testBucketService) UploadFile(_ context.Context, _ string, file io.Reader, _ string) (int64, error) {
	return io.Copy(io.Discard, file)
}

func (t *testBucketService) DownloadFile(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (t *testBucketService) DeleteFile(context.Context, string) error { return nil }

func (t *testBucketService) GetPublicURL(key string) string { return "https://cdn.test/" + key }

func (t *testBucketService) Close() error {
	t.closed = true
	return nil
}
