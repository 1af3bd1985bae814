package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursechat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursechat-backend/internal/http/middleware"
	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	CORSOrigins []string
	// MaxBodyBytes caps JSON request bodies; MaxUploadBytes caps the upload route.
	MaxBodyBytes   int64
	MaxUploadBytes int64
	// TracingService enables otelgin spans under that service name.
	TracingService string
	// UploadsPath is where blobs are served; empty disables the route.
	UploadsPath string

	HealthHandler *httpH.HealthHandler
	CourseHandler *httpH.CourseHandler
	UploadHandler *httpH.UploadHandler
	AskHandler    *httpH.AskHandler
	BlobHandler   *httpH.BlobHandler
}

// multipart framing on top of the file itself
const uploadOverheadBytes = 1 << 20

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingService != "" {
		r.Use(otelgin.Middleware(cfg.TracingService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	if cfg.BlobHandler != nil && cfg.UploadsPath != "" {
		r.GET(cfg.UploadsPath+"/:name", cfg.BlobHandler.Serve)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	jsonLimit := httpMW.BodyLimit(cfg.MaxBodyBytes)
	{
		// Courses
		if cfg.CourseHandler != nil {
			api.POST("/courses", jsonLimit, cfg.CourseHandler.CreateCourse)
			api.GET("/courses", cfg.CourseHandler.ListCourses)
			api.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)

			api.GET("/courses/:id/messages", cfg.CourseHandler.ListMessages)
			api.POST("/courses/:id/messages", jsonLimit, cfg.CourseHandler.PostMessage)
			api.DELETE("/courses/:id/messages/:messageId", cfg.CourseHandler.DeleteMessage)
		}

		// Uploads
		if cfg.UploadHandler != nil {
			limit := cfg.MaxUploadBytes
			if limit > 0 {
				limit += uploadOverheadBytes
			}
			api.POST("/courses/:id/upload", httpMW.BodyLimit(limit), cfg.UploadHandler.Upload)
		}

		// Ask
		if cfg.AskHandler != nil {
			api.POST("/ask", jsonLimit, cfg.AskHandler.Ask)
		}
	}

	return r
}
