package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursechat-backend/internal/db"
	"github.com/yungbote/coursechat-backend/internal/extract"
	"github.com/yungbote/coursechat-backend/internal/platform/gcp"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/openai"
	"github.com/yungbote/coursechat-backend/internal/platform/rediscache"
)

type Clients struct {
	DB        *db.Service
	Redis     *goredis.Client
	Cache     rediscache.Cache
	Blob      resolvedStore
	Engine    openai.Client
	Extractor *extract.Service

	closers []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (c Clients, err error) {
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.DB, err = OpenDB(log, cfg.DB)
	if err != nil {
		return c, err
	}
	c.closers = append(c.closers, c.DB.Close)

	c.Cache = rediscache.Noop{}
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		c.Redis, err = rediscache.Dial(ctx, cacheConfig(cfg.Redis))
		if err != nil {
			return c, fmt.Errorf("init redis: %w", err)
		}
		c.closers = append(c.closers, c.Redis.Close)
		c.Cache = rediscache.New(log, c.Redis, cacheConfig(cfg.Redis))
	} else {
		log.Info("Redis not configured; context cache disabled")
	}

	c.Blob, err = resolveBlobStore(log, cfg.Blob)
	if err != nil {
		return c, err
	}
	c.closers = append(c.closers, c.Blob.Close)

	c.Engine, err = openai.NewClient(log, cfg.Engine.Client())
	if err != nil {
		return c, fmt.Errorf("init answer engine: %w", err)
	}

	var closeExtract []func() error
	c.Extractor, closeExtract, err = BuildExtractor(log, cfg.Extract, c.Engine)
	c.closers = append(c.closers, closeExtract...)
	if err != nil {
		return c, err
	}
	return c, nil
}

// Close releases clients in reverse order of creation.
func (c *Clients) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// OpenDB connects and migrates.
func OpenDB(log *logger.Logger, cfg DBConfig) (*db.Service, error) {
	svc, err := db.Open(log, db.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		LogQueries:      cfg.LogQueries,
	})
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	return svc, nil
}

func cacheConfig(cfg RedisConfig) rediscache.Config {
	return rediscache.Config{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		KeyPrefix: cfg.KeyPrefix,
		TTL:       cfg.TTL,
	}
}

// BuildExtractor constructs only the providers some enabled kind can reach, so a
// deployment with OCR off never dials Vision. engine may be nil when audio is not
// transcribed through it.
func BuildExtractor(log *logger.Logger, cfg ExtractConfig, engine openai.Client) (*extract.Service, []func() error, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, nil, err
	}
	var (
		opts    = extract.Options{Timeout: cfg.Timeout}
		closers []func() error
	)
	fail := func(err error) (*extract.Service, []func() error, error) {
		return nil, closers, err
	}

	if policy.Audio != extract.ModeOff {
		switch cfg.AudioProvider {
		case ProviderOpenAI:
			if engine == nil {
				return fail(fmt.Errorf("audio transcription via openai needs an answer engine client"))
			}
			opts.Audio = extract.WhisperTranscriber{Client: engine}
		case ProviderGCP:
			sp, err := gcp.NewSpeech(log, gcp.SpeechConfig{
				LanguageCode:               cfg.SpeechLanguage,
				Model:                      cfg.SpeechModel,
				EnableAutomaticPunctuation: true,
			})
			if err != nil {
				return fail(fmt.Errorf("init speech: %w", err))
			}
			closers = append(closers, sp.Close)
			opts.Audio = extract.SpeechTranscriber{Speech: sp}
		}
		opts.Providers.Audio = cfg.AudioProvider
	}

	if policy.Image != extract.ModeOff && cfg.OCRProvider == ProviderGCP {
		v, err := gcp.NewVision(log, cfg.VisionHints)
		if err != nil {
			return fail(fmt.Errorf("init vision: %w", err))
		}
		closers = append(closers, v.Close)
		opts.OCR = extract.VisionOCR{Vision: v}
		opts.Providers.OCR = cfg.OCRProvider
	}

	if policy.PDF != extract.ModeOff {
		switch cfg.PDFProvider {
		case ProviderLocal:
			opts.PDF = extract.LocalPDF{}
		case ProviderDocumentAI:
			doc, err := gcp.NewDocument(log, gcp.DocumentConfig{
				ProjectID:        cfg.DocumentAI.ProjectID,
				Location:         cfg.DocumentAI.Location,
				ProcessorID:      cfg.DocumentAI.ProcessorID,
				ProcessorVersion: cfg.DocumentAI.ProcessorVersion,
			})
			if err != nil {
				return fail(fmt.Errorf("init documentai: %w", err))
			}
			closers = append(closers, doc.Close)
			opts.PDF = extract.DocumentAIPDF{Doc: doc}
		}
		opts.Providers.PDF = cfg.PDFProvider
	}

	if policy.File != extract.ModeOff && cfg.DocumentProvider == ProviderOffice {
		opts.Document = extract.OfficeText{}
		opts.Providers.Document = cfg.DocumentProvider
	}

	log.Info("Extraction configured",
		"audio", policy.Audio, "audio_provider", opts.Providers.Audio,
		"image", policy.Image, "ocr_provider", opts.Providers.OCR,
		"pdf", policy.PDF, "pdf_provider", opts.Providers.PDF,
		"file", policy.File, "document_provider", opts.Providers.Document,
	)
	return extract.New(log, opts), closers, nil
}
