package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursechat-backend/internal/data/repos"
	"github.com/yungbote/coursechat-backend/internal/format"
	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/dbctx"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type AskRequest struct {
	Question string
	CourseID string
	FileName string
}

type AskResult struct {
	Answer string
	// Grounded is true when file context was sent with the question.
	Grounded bool
}

type AskService interface {
	Ask(ctx context.Context, req AskRequest) (*AskResult, error)
}

type askService struct {
	log      *logger.Logger
	courses  repos.CourseRepo
	resolver ContextResolver
	answers  AnswerService
}

func NewAskService(baseLog *logger.Logger, courses repos.CourseRepo, resolver ContextResolver, answers AnswerService) AskService {
	return &askService{
		log:      baseLog.With("service", "AskService"),
		courses:  courses,
		resolver: resolver,
		answers:  answers,
	}
}

func (s *askService) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apierr.Validation("missing_question", "question is required")
	}

	var grounding string
	if raw := strings.TrimSpace(req.CourseID); raw != "" {
		courseID, err := uuid.Parse(raw)
		if err != nil {
			return nil, apierr.NotFound("course_not_found", "course %s not found", raw)
		}
		ok, err := s.courses.Exists(dbctx.Of(ctx), courseID)
		if err != nil {
			return nil, apierr.Upstream("store_error", err)
		}
		if !ok {
			return nil, apierr.NotFound("course_not_found", "course %s not found", courseID)
		}
		grounding = s.resolver.Resolve(ctx, courseID, req.FileName)
	}

	raw, err := s.answers.Answer(ctx, question, grounding)
	if err != nil {
		return nil, err
	}
	return &AskResult{Answer: format.Answer(raw), Grounded: grounding != ""}, nil
}
