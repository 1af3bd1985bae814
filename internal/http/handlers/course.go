package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursechat-backend/internal/blob"
	types "github.com/yungbote/coursechat-backend/internal/domain"
	"github.com/yungbote/coursechat-backend/internal/http/response"
	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/services"
)

type CourseHandler struct {
	log     *logger.Logger
	courses services.CourseService
	store   blob.Store
}

func NewCourseHandler(log *logger.Logger, courses services.CourseService, store blob.Store) *CourseHandler {
	return &CourseHandler{
		log:     log.With("handler", "CourseHandler"),
		courses: courses,
		store:   store,
	}
}

// messageView adds the client-facing blob URL to file-bearing messages.
type messageView struct {
	*types.Message
	URL string `json:"url,omitempty"`
}

func viewOf(store blob.Store, m *types.Message) messageView {
	v := messageView{Message: m}
	if store != nil && m.Kind.HasBlob() {
		v.URL = store.URL(m.Content)
	}
	return v
}

// courseIDParam parses a path id. Malformed ids name no course, so they are a 404.
func courseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.NotFound("course_not_found", "course %s not found", raw)
	}
	return id, nil
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	_ = c.ShouldBindJSON(&req)
	course, err := h.courses.CreateCourse(c.Request.Context(), req.Name)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, course)
}

// GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courses.ListCourses(c.Request.Context())
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	if courses == nil {
		courses = []*types.Course{}
	}
	response.RespondOK(c, courses)
}

// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	if err := h.courses.DeleteCourse(c.Request.Context(), id); err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	c.String(http.StatusOK, "Course deleted")
}

// GET /api/courses/:id/messages
func (h *CourseHandler) ListMessages(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	msgs, err := h.courses.ListMessages(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, viewOf(h.store, m))
	}
	response.RespondOK(c, out)
}

// POST /api/courses/:id/messages
func (h *CourseHandler) PostMessage(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	var req struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	_ = c.ShouldBindJSON(&req)
	msg, err := h.courses.PostMessage(c.Request.Context(), id, req.Type, req.Content)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"success": true, "message": viewOf(h.store, msg)})
}

// DELETE /api/courses/:id/messages/:messageId
func (h *CourseHandler) DeleteMessage(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	msgID, err := uuid.Parse(strings.TrimSpace(c.Param("messageId")))
	if err != nil {
		response.RespondErr(c, h.log, apierr.NotFound("message_not_found", "message %s not found", c.Param("messageId")))
		return
	}
	msg, err := h.courses.DeleteMessage(c.Request.Context(), id, msgID)
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "deletedMessage": viewOf(h.store, msg)})
}
