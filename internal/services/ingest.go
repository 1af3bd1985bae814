package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/data/repos"
	types "github.com/yungbote/coursechat-backend/internal/domain"
	"github.com/yungbote/coursechat-backend/internal/domain/course"
	"github.com/yungbote/coursechat-backend/internal/extract"
	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/dbctx"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/rediscache"
)

// Upload is one file received from a client. Size is the declared byte count.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type IngestService interface {
	// Ingest stores the upload as a blob and appends a typed message to the course.
	Ingest(ctx context.Context, courseID uuid.UUID, up Upload) (*types.Message, error)
}

type IngestConfig struct {
	MaxUploadBytes int64
	Policy         extract.Policy
	// BlobTimeout bounds the blob write and read-back. Zero disables it.
	BlobTimeout time.Duration
}

type ingestService struct {
	log       *logger.Logger
	courses   repos.CourseRepo
	messages  repos.MessageRepo
	store     blob.Store
	extractor *extract.Service
	cache     rediscache.Cache
	cfg       IngestConfig
	now       func() time.Time
}

func NewIngestService(
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	messages repos.MessageRepo,
	store blob.Store,
	extractor *extract.Service,
	cache rediscache.Cache,
	cfg IngestConfig,
) IngestService {
	if cache == nil {
		cache = rediscache.Noop{}
	}
	return &ingestService{
		log:       baseLog.With("service", "IngestService"),
		courses:   courses,
		messages:  messages,
		store:     store,
		extractor: extractor,
		cache:     cache,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *ingestService) Ingest(ctx context.Context, courseID uuid.UUID, up Upload) (*types.Message, error) {
	kind := course.Classify(up.Filename)
	ctx, span := observability.StartSpan(ctx, "ingest.upload",
		attribute.String("message.kind", kind.String()),
		attribute.Int64("upload.size", up.Size),
	)
	defer span.End()

	msg, err := s.ingest(ctx, courseID, kind, up)
	switch {
	case err == nil:
		observability.Current().ObserveUpload(kind.String(), "ok", up.Size)
	case apierr.StatusOf(err) < http.StatusInternalServerError:
		observability.Current().ObserveUpload(kind.String(), "rejected", 0)
	default:
		span.RecordError(err)
		observability.Current().ObserveUpload(kind.String(), "failed", 0)
	}
	return msg, err
}

func (s *ingestService) ingest(ctx context.Context, courseID uuid.UUID, kind course.MessageKind, up Upload) (*types.Message, error) {
	if up.Body == nil || strings.TrimSpace(up.Filename) == "" {
		return nil, apierr.Validation("no_file", "no file uploaded")
	}
	if s.cfg.MaxUploadBytes > 0 && up.Size > s.cfg.MaxUploadBytes {
		return nil, apierr.Validation("file_too_large", "file is %d bytes; limit is %d", up.Size, s.cfg.MaxUploadBytes)
	}

	ok, err := s.courses.Exists(dbctx.Of(ctx), courseID)
	if err != nil {
		return nil, apierr.Upstream("store_error", err)
	}
	if !ok {
		return nil, apierr.NotFound("course_not_found", "course %s not found", courseID)
	}

	name := blob.GenerateName(s.now(), up.Filename)
	log := s.log.With("course_id", courseID, "blob", name, "kind", kind)

	body := bufio.NewReaderSize(up.Body, 512)
	head, _ := body.Peek(512)
	sniffed := http.DetectContentType(head)
	contentType := blob.ContentTypeForName(name)
	if contentType == "" {
		contentType = sniffed
	}

	written, err := s.putBlob(ctx, name, body, contentType)
	if err != nil {
		if errors.Is(err, blob.ErrTooLarge) {
			return nil, apierr.Validation("file_too_large", "file exceeds %d bytes", s.cfg.MaxUploadBytes)
		}
		log.Error("Blob write failed", "error", err)
		return nil, apierr.FromContext("blob_store", err)
	}

	msg := &types.Message{CourseID: courseID, Kind: kind, Content: name}
	msg.SetFileMeta(types.FileMeta{OriginalName: up.Filename, ContentType: sniffed, SizeBytes: written})

	if s.cfg.Policy.ModeFor(kind) == extract.ModeEager {
		text := s.extractEager(ctx, log, kind, name)
		switch kind {
		case course.KindAudio:
			msg.Transcription = text
		case course.KindImage, course.KindPDF, course.KindFile:
			if text != "" {
				if err := s.cache.Set(ctx, name, text); err != nil {
					log.Warn("Context cache warm failed", "error", err)
				}
			}
		case course.KindText:
		default:
			panic(fmt.Sprintf("ingest: unhandled message kind %q", string(kind)))
		}
	}

	if _, err := s.messages.Create(dbctx.Of(ctx), msg); err != nil {
		log.Error("Message insert failed; removing blob", "error", err)
		if dErr := s.store.Delete(context.WithoutCancel(ctx), name); dErr != nil {
			log.Warn("Orphan blob delete failed", "error", dErr)
		}
		return nil, apierr.Upstream("store_error", err)
	}
	log.Info("Upload ingested", "message_id", msg.ID, "bytes", written, "transcribed", msg.Transcription != "")
	return msg, nil
}

func (s *ingestService) putBlob(ctx context.Context, name string, r io.Reader, contentType string) (int64, error) {
	if s.cfg.BlobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.BlobTimeout)
		defer cancel()
	}
	if s.cfg.MaxUploadBytes > 0 {
		r = &limitedReader{r: r, remaining: s.cfg.MaxUploadBytes}
	}
	n, err := s.store.Put(ctx, name, r, contentType)
	if err != nil && errors.Is(err, blob.ErrTooLarge) {
		// the declared size lied; the partial write is already gone on the local store
		_ = s.store.Delete(context.WithoutCancel(ctx), name)
	}
	return n, err
}

// extractEager runs extraction at upload time. Failures degrade to "".
func (s *ingestService) extractEager(ctx context.Context, log *logger.Logger, kind course.MessageKind, name string) string {
	data, err := blob.ReadAll(ctx, s.store, name, s.cfg.MaxUploadBytes)
	if err != nil {
		log.Warn("Eager extraction skipped; blob unreadable", "error", err)
		return ""
	}
	text, err := s.extractor.Extract(ctx, kind, data, name)
	if err != nil {
		log.Warn("Eager extraction failed; continuing without text", "error", err)
		return ""
	}
	if strings.TrimSpace(text) == "" {
		log.Info("Eager extraction returned no text")
		return ""
	}
	return text
}

// limitedReader fails with blob.ErrTooLarge once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, blob.ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, blob.ErrTooLarge
	}
	return n, err
}
