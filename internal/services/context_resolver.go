package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/data/repos"
	"github.com/yungbote/coursechat-backend/internal/extract"
	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/dbctx"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/rediscache"
)

type ContextResolver interface {
	// Resolve returns the extracted text of the newest groundable message in the course
	// whose content is fileRef. Every miss or failure yields "".
	Resolve(ctx context.Context, courseID uuid.UUID, fileRef string) string
}

type contextResolver struct {
	log       *logger.Logger
	messages  repos.MessageRepo
	store     blob.Store
	extractor *extract.Service
	policy    extract.Policy
	cache     rediscache.Cache
	maxBytes  int64
}

func NewContextResolver(
	baseLog *logger.Logger,
	messages repos.MessageRepo,
	store blob.Store,
	extractor *extract.Service,
	policy extract.Policy,
	cache rediscache.Cache,
	maxBytes int64,
) ContextResolver {
	if cache == nil {
		cache = rediscache.Noop{}
	}
	return &contextResolver{
		log:       baseLog.With("service", "ContextResolver"),
		messages:  messages,
		store:     store,
		extractor: extractor,
		policy:    policy,
		cache:     cache,
		maxBytes:  maxBytes,
	}
}

func (r *contextResolver) Resolve(ctx context.Context, courseID uuid.UUID, fileRef string) string {
	fileRef = strings.TrimSpace(fileRef)
	if courseID == uuid.Nil || fileRef == "" {
		return ""
	}
	log := r.log.With("course_id", courseID, "file_ref", fileRef)

	msg, err := r.messages.LatestByContent(dbctx.Of(ctx), courseID, fileRef, r.policy.GroundingKinds())
	if err != nil {
		log.Warn("Context lookup failed", "error", err)
		return ""
	}
	if msg == nil {
		log.Debug("No groundable message matches file reference")
		return ""
	}

	if text, ok, err := r.cache.Get(ctx, msg.Content); err != nil {
		log.Warn("Context cache read failed", "error", err)
	} else if ok {
		observability.Current().IncContextCache(true)
		return text
	}
	observability.Current().IncContextCache(false)

	data, err := blob.ReadAll(ctx, r.store, msg.Content, r.maxBytes)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			log.Warn("Referenced blob is missing", "message_id", msg.ID)
		} else {
			log.Warn("Referenced blob unreadable", "message_id", msg.ID, "error", err)
		}
		return ""
	}

	text, err := r.extractor.Extract(ctx, msg.Kind, data, msg.Content)
	if err != nil {
		log.Warn("Context extraction failed; answering without grounding", "kind", msg.Kind, "error", err)
		return ""
	}
	if text != "" {
		if err := r.cache.Set(ctx, msg.Content, text); err != nil {
			log.Warn("Context cache write failed", "error", err)
		}
	}
	return text
}
