package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/musebox/musebox-backend/api/controllers"
	"github.com/musebox/musebox-backend/api/middleware"
	"github.com/musebox/musebox-backend/internal/aigc"
	"github.com/musebox/musebox-backend/pkg/config"
	"github.com/musebox/musebox-backend/pkg/db"
	"github.com/musebox/musebox-backend/pkg/logger"
	"github.com/musebox/musebox-backend/pkg/redis"
	"github.com/musebox/musebox-backend/pkg/storage/gcs"
)

type pubsubPinger interface {
	Ping(context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gcsClient gcs.Pinger,
	pubsubClient pubsubPinger,
	aigcService aigc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	usagePolicy := middleware.NewRateLimitPolicy(
		"usage",
		cfg.RateLimit.UsageWindow,
		cfg.RateLimit.UsageIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, gcsClient, pubsubClient))
	})

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/songs/{songId}/aigc", controllers.SongGeneratedContent(aigcService, logg))
		r.With(
			middleware.RateLimit(usagePolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/aigc/contents/{contentId}/usage", controllers.RecordContentUsage(aigcService, logg))
	})

	r.Route("/api/admin/v1/aigc", func(r chi.Router) {
		// Attached per endpoint: the middleware reads the resolved route
		// pattern, which is only complete once the leaf route has matched.
		idem := middleware.Idempotency(redisClient, logg)

		r.With(idem).Post("/tasks", controllers.SubmitGenerationTask(aigcService, logg))
		r.Get("/tasks", controllers.ListGenerationTasks(aigcService, logg))
		r.Get("/tasks/{taskId}", controllers.GetGenerationTask(aigcService, logg))

		r.Get("/contents", controllers.ListGeneratedContents(aigcService, logg))
		r.With(idem).Post("/contents/{contentId}/review", controllers.ReviewGeneratedContent(aigcService, logg))
		r.With(idem).Post("/contents/{contentId}/publish", controllers.PublishGeneratedContent(aigcService, logg))
		r.With(idem).Post("/contents/{contentId}/usage", controllers.RecordContentUsage(aigcService, logg))
	})

	return r
}
