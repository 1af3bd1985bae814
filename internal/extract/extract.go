package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/coursechat-backend/internal/domain/course"
	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

var (
	ErrNoExtractor = errors.New("no extractor configured")
	ErrNotText     = errors.New("kind carries no extractable file")
)

type PDFExtractor interface {
	ExtractPDF(ctx context.Context, data []byte) (string, error)
}

type ImageOCR interface {
	ExtractImage(ctx context.Context, data []byte) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, filename string) (string, error)
}

type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, data []byte, filename string) (string, error)
}

// Providers names the concrete backend behind each extractor, for logs and metrics.
type Providers struct {
	PDF      string
	OCR      string
	Audio    string
	Document string
}

type Options struct {
	PDF       PDFExtractor
	OCR       ImageOCR
	Audio     Transcriber
	Document  DocumentExtractor
	Providers Providers
	// Timeout bounds each extraction call. Zero disables it.
	Timeout time.Duration
}

// Service dispatches extraction by message kind.
type Service struct {
	log  *logger.Logger
	opts Options
}

func New(log *logger.Logger, opts Options) *Service {
	return &Service{log: log.With("service", "Extractor"), opts: opts}
}

// Extract returns plain text for a file of the given kind, or "" when the file holds none.
func (s *Service) Extract(ctx context.Context, kind course.MessageKind, data []byte, filename string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	provider := s.providerFor(kind)
	ctx, span := observability.StartSpan(ctx, "extract."+kind.String(),
		attribute.String("extract.provider", provider),
		attribute.Int("extract.bytes", len(data)),
	)
	defer span.End()

	start := time.Now()
	text, err := s.dispatch(ctx, kind, data, filename)
	if errors.Is(err, ErrNoExtractor) || errors.Is(err, ErrNotText) {
		return "", err
	}
	observability.Current().ObserveExtraction(kind.String(), provider, err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("extract %s via %s: %w", kind, provider, err)
	}
	s.log.Debug("extracted text", "kind", kind, "provider", provider, "chars", len([]rune(text)), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (s *Service) dispatch(ctx context.Context, kind course.MessageKind, data []byte, filename string) (string, error) {
	switch kind {
	case course.KindAudio:
		if s.opts.Audio == nil {
			return "", ErrNoExtractor
		}
		return s.opts.Audio.Transcribe(ctx, data, filename)
	case course.KindImage:
		if s.opts.OCR == nil {
			return "", ErrNoExtractor
		}
		return s.opts.OCR.ExtractImage(ctx, data)
	case course.KindPDF:
		if s.opts.PDF == nil {
			return "", ErrNoExtractor
		}
		return s.opts.PDF.ExtractPDF(ctx, data)
	case course.KindFile:
		if s.opts.Document == nil {
			return "", ErrNoExtractor
		}
		return s.opts.Document.ExtractDocument(ctx, data, filename)
	case course.KindText:
		return "", ErrNotText
	default:
		panic(fmt.Sprintf("extract: unhandled message kind %q", string(kind)))
	}
}

func (s *Service) providerFor(kind course.MessageKind) string {
	var p string
	switch kind {
	case course.KindAudio:
		p = s.opts.Providers.Audio
	case course.KindImage:
		p = s.opts.Providers.OCR
	case course.KindPDF:
		p = s.opts.Providers.PDF
	case course.KindFile:
		p = s.opts.Providers.Document
	}
	if p == "" {
		return "unknown"
	}
	return p
}
