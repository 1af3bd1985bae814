package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/http/response"
	"github.com/yungbote/coursechat-backend/internal/platform/apierr"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/services"
)

type UploadHandler struct {
	log    *logger.Logger
	ingest services.IngestService
	store  blob.Store
}

func NewUploadHandler(log *logger.Logger, ingest services.IngestService, store blob.Store) *UploadHandler {
	return &UploadHandler{
		log:    log.With("handler", "UploadHandler"),
		ingest: ingest,
		store:  store,
	}
}

// POST /api/courses/:id/upload (multipart field "file")
func (h *UploadHandler) Upload(c *gin.Context) {
	id, err := courseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.RespondErr(c, h.log, apierr.Validation("file_too_large", "upload exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			response.RespondErr(c, h.log, apierr.Validation("no_file", "No file uploaded"))
		default:
			response.RespondErr(c, h.log, apierr.Validation("invalid_multipart_form", "%v", err))
		}
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondErr(c, h.log, apierr.Upstream("upload_unreadable", err))
		return
	}
	defer f.Close()

	msg, err := h.ingest.Ingest(c.Request.Context(), id, services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		response.RespondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "message": viewOf(h.store, msg)})
}
