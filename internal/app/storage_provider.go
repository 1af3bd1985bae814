package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/platform/gcp"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

var newBucketService = gcp.NewBucketService

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Backend      string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "blob store bootstrap failed"
	}
	return fmt.Sprintf(
		"blob store bootstrap failed (code=%s backend=%q emulator_host=%q): %v",
		e.Code,
		e.Backend,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolvedStore is the blob store plus whether its URLs point off-host, in which case the
// uploads route redirects instead of streaming.
type resolvedStore struct {
	Store    blob.Store
	Remote   bool
	closeFns []func() error
}

func (r resolvedStore) Close() error {
	var errs []error
	for _, fn := range r.closeFns {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

func resolveBlobStore(log *logger.Logger, cfg BlobConfig) (resolvedStore, error) {
	if cfg.Backend == BlobBackendLocal {
		store, err := blob.NewLocalStore(log, cfg.Dir, cfg.PublicPath)
		if err != nil {
			return resolvedStore{}, fmt.Errorf("local blob store: %w", err)
		}
		log.Info("Selecting blob store", "backend", cfg.Backend, "dir", cfg.Dir)
		return resolvedStore{Store: store}, nil
	}

	storageCfg, err := gcp.ResolveObjectStorageConfig(cfg.Backend, cfg.EmulatorHost)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(cfg, err)
		log.Error(
			"Blob store selection failed",
			"backend", cfg.Backend,
			"emulator_host", cfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return resolvedStore{}, classified
	}

	log.Info(
		"Selecting blob store",
		"backend", storageCfg.Mode,
		"bucket", cfg.Bucket,
		"emulator_host", storageCfg.EmulatorHost,
	)

	bucket, err := newBucketService(log, gcp.BucketConfig{
		Bucket:        cfg.Bucket,
		Storage:       storageCfg,
		CDNDomain:     cfg.CDNDomain,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		classified := classifyStorageProviderBootstrapError(cfg, err)
		log.Error(
			"Blob store bootstrap failed",
			"backend", storageCfg.Mode,
			"bucket", cfg.Bucket,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return resolvedStore{}, classified
	}
	store := blob.NewGCSStore(bucket)
	return resolvedStore{Store: store, Remote: true, closeFns: []func() error{store.Close}}, nil
}

func classifyStorageProviderBootstrapError(cfg BlobConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Backend:      cfg.Backend,
		EmulatorHost: cfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
