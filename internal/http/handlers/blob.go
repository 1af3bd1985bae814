package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursechat-backend/internal/blob"
	"github.com/yungbote/coursechat-backend/internal/http/response"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

// BlobHandler serves uploaded files. With redirect set (cloud buckets) it sends the
// client to the object's public URL instead of proxying bytes.
type BlobHandler struct {
	log      *logger.Logger
	store    blob.Store
	redirect bool
}

func NewBlobHandler(log *logger.Logger, store blob.Store, redirect bool) *BlobHandler {
	return &BlobHandler{
		log:      log.With("handler", "BlobHandler"),
		store:    store,
		redirect: redirect,
	}
}

// GET /uploads/:name
func (h *BlobHandler) Serve(c *gin.Context) {
	name := c.Param("name")
	if err := blob.ValidName(name); err != nil {
		response.RespondError(c, http.StatusNotFound, "blob_not_found", errors.New("file not found"))
		return
	}
	if h.redirect {
		c.Redirect(http.StatusFound, h.store.URL(name))
		return
	}
	rc, err := h.store.Open(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "blob_not_found", errors.New("file not found"))
			return
		}
		h.log.Error("Blob open failed", "blob", name, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "blob_store", errors.New(response.GenericFailure))
		return
	}
	defer rc.Close()

	contentType := blob.ContentTypeForName(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
