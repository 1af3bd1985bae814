package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/data/repos"
	types "github.com/yungbote/coursechat-backend/internal/domain"
	"github.com/yungbote/coursechat-backend/internal/domain/course"
	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/dbctx"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type CourseService interface {
	CreateCourse(ctx context.Context, name string) (*types.Course, error)
	ListCourses(ctx context.Context) ([]*types.Course, error)
	// DeleteCourse removes the course and its messages, then schedules blob cleanup for
	// every file-bearing message.
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error

	ListMessages(ctx context.Context, courseID uuid.UUID) ([]*types.Message, error)
	PostMessage(ctx context.Context, courseID uuid.UUID, kind, content string) (*types.Message, error)
	DeleteMessage(ctx context.Context, courseID, messageID uuid.UUID) (*types.Message, error)
}

type courseService struct {
	log      *logger.Logger
	courses  repos.CourseRepo
	messages repos.MessageRepo
	cleaner  BlobCleaner
}

func NewCourseService(baseLog *logger.Logger, courses repos.CourseRepo, messages repos.MessageRepo, cleaner BlobCleaner) CourseService {
	return &courseService{
		log:      baseLog.With("service", "CourseService"),
		courses:  courses,
		messages: messages,
		cleaner:  cleaner,
	}
}

func (s *courseService) CreateCourse(ctx context.Context, name string) (*types.Course, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("missing_name", "course name is required")
	}
	c, err := s.courses.Create(dbctx.Of(ctx), &types.Course{Name: name})
	if err != nil {
		return nil, apierr.Upstream("store_error", err)
	}
	s.log.Info("Course created", "course_id", c.ID)
	return c, nil
}

func (s *courseService) ListCourses(ctx context.Context) ([]*types.Course, error) {
	out, err := s.courses.List(dbctx.Of(ctx))
	if err != nil {
		return nil, apierr.Upstream("store_error", err)
	}
	return out, nil
}

func (s *courseService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	removed, found, err := s.courses.DeleteByID(dbctx.Of(ctx), courseID)
	if err != nil {
		return apierr.Upstream("store_error", err)
	}
	if !found {
		return apierr.NotFound("course_not_found", "course %s not found", courseID)
	}
	var names []string
	for _, m := range removed {
		if m.Kind.HasBlob() {
			names = append(names, m.Content)
		}
	}
	s.cleaner.Enqueue(names...)
	s.log.Info("Course deleted", "course_id", courseID, "messages", len(removed), "blobs", len(names))
	return nil
}

func (s *courseService) requireCourse(ctx context.Context, courseID uuid.UUID) error {
	ok, err := s.courses.Exists(dbctx.Of(ctx), courseID)
	if err != nil {
		return apierr.Upstream("store_error", err)
	}
	if !ok {
		return apierr.NotFound("course_not_found", "course %s not found", courseID)
	}
	return nil
}

func (s *courseService) ListMessages(ctx context.Context, courseID uuid.UUID) ([]*types.Message, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	out, err := s.messages.ListByCourseID(dbctx.Of(ctx), courseID)
	if err != nil {
		return nil, apierr.Upstream("store_error", err)
	}
	return out, nil
}

func (s *courseService) PostMessage(ctx context.Context, courseID uuid.UUID, rawKind, content string) (*types.Message, error) {
	if strings.TrimSpace(rawKind) == "" || strings.TrimSpace(content) == "" {
		return nil, apierr.Validation("missing_fields", "type and content are required")
	}
	kind, err := course.ParseMessageKind(rawKind)
	if err != nil {
		return nil, apierr.Validation("invalid_type", "%v", err)
	}
	if kind.HasBlob() {
		if err := blob.ValidName(content); err != nil {
			return nil, apierr.Validation("invalid_content", "%v", err)
		}
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	msg, err := s.messages.Create(dbctx.Of(ctx), &types.Message{CourseID: courseID, Kind: kind, Content: content})
	if err != nil {
		return nil, apierr.Upstream("store_error", err)
	}
	return msg, nil
}

func (s *courseService) DeleteMessage(ctx context.Context, courseID, messageID uuid.UUID) (*types.Message, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	msg, err := s.messages.GetByID(dbc, courseID, messageID)
	if err != nil {
		return nil, apierr.Upstream("store_error", err)
	}
	if msg == nil {
		return nil, apierr.NotFound("message_not_found", "message %s not found", messageID)
	}
	deleted, err := s.messages.DeleteByID(dbc, courseID, messageID)
	if err != nil {
		return nil, apierr.Upstream("store_error", err)
	}
	if !deleted {
		// lost a race with another delete
		return nil, apierr.NotFound("message_not_found", "message %s not found", messageID)
	}
	if msg.Kind.HasBlob() {
		s.cleaner.Enqueue(msg.Content)
	}
	return msg, nil
}
