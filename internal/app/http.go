package app

import (
	"context"

	apphttp "github.com/yungbote/coursechat-backend/internal/http"
	httpH "github.com/yungbote/coursechat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursechat-backend/internal/http/middleware"
	"github.com/yungbote/coursechat-backend/internal/observability"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, clients Clients, svcs Services, metrics *observability.Metrics) *apphttp.Server {
	store := clients.Blob.Store

	var auth *httpMW.AuthMiddleware
	if cfg.Auth.JWTSecret != "" {
		auth = httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		log.Warn("AUTH_JWT_SECRET not set; /api is unauthenticated")
	}

	var tracing string
	if cfg.Otel.Enabled {
		tracing = cfg.Otel.ServiceName
	}

	routerCfg := apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		AuthMiddleware: auth,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		MaxUploadBytes: cfg.Blob.MaxUploadBytes,
		TracingService: tracing,
		UploadsPath:    cfg.Blob.PublicPath,

		HealthHandler: httpH.NewHealthHandler(readiness(clients)),
		CourseHandler: httpH.NewCourseHandler(log, svcs.Courses, store),
		UploadHandler: httpH.NewUploadHandler(log, svcs.Ingest, store),
		AskHandler:    httpH.NewAskHandler(log, svcs.Ask),
		BlobHandler:   httpH.NewBlobHandler(log, store, clients.Blob.Remote),
	}
	return apphttp.NewServer(routerCfg, cfg.HTTP.Addr(), cfg.HTTP.ShutdownGrace)
}

func readiness(clients Clients) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := clients.DB.Ping(ctx); err != nil {
			return err
		}
		if clients.Redis != nil {
			return clients.Redis.Ping(ctx).Err()
		}
		return nil
	}
}
