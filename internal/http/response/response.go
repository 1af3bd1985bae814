package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

// GenericFailure is the only message a client sees for a 5xx.
const GenericFailure = "Failed to process your question."

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr maps err through apierr. Server-side failures are logged with their detail
// and reported to the client with GenericFailure only.
func RespondErr(c *gin.Context, log *logger.Logger, err error) {
	status := apierr.StatusOf(err)
	code := apierr.CodeOf(err)
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("Request failed",
				"path", c.FullPath(),
				"code", code,
				"request_id", ctxutil.RequestID(c.Request.Context()),
				"error", err,
			)
		}
		c.JSON(status, ErrorEnvelope{Error: APIError{Message: GenericFailure, Code: code}})
		return
	}
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
