package handlers

import (
	"bytes"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/yungbote/coursechat-backend/internal/http/response"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/services"
)

type AskHandler struct {
	log *logger.Logger
	ask services.AskService
	md  goldmark.Markdown
}

func NewAskHandler(log *logger.Logger, ask services.AskService) *AskHandler {
	return &AskHandler{
		log: log.With("handler", "AskHandler"),
		ask: ask,
		// answers are line-oriented; every newline is a visible break
		md: goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
	}
}

// POST /api/ask {question, courseId?, fileName?}; ?render=html adds answerHtml.
func (h *AskHandler) Ask(c *gin.Context) {
	var req struct {
		Question string `json:"question"`
		CourseID string `json:"courseId"`
		FileName string `json:"fileName"`
	}
	_ = c.ShouldBindJSON(&req)

	res, err := h.ask.Ask(c.Request.Context(), services.AskRequest{
		Question: req.Question,
		CourseID: req.CourseID,
		FileName: req.FileName,
	})
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}

	out := gin.H{"answer": res.Answer}
	if c.Query("render") == "html" {
		var buf bytes.Buffer
		if err := h.md.Convert([]byte(res.Answer), &buf); err != nil {
			h.log.Warn("Answer HTML render failed", "error", err)
		} else {
			out["answerHtml"] = buf.String()
		}
	}
	response.RespondOK(c, out)
}
