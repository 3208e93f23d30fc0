package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/musebox/musebox-backend/api/responses"
	"github.com/musebox/musebox-backend/pkg/config"
	"github.com/musebox/musebox-backend/pkg/db"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/logger"
	"github.com/musebox/musebox-backend/pkg/redis"
	"github.com/musebox/musebox-backend/pkg/storage/gcs"
)

const readinessTimeout = 5 * time.Second

type pubsubPinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MuseBox-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger, pubsubP pubsubPinger) http.HandlerFunc {
	type check struct {
		name string
		ping func(context.Context) error
	}

	checks := []check{}
	if dbP != nil {
		checks = append(checks, check{"database", dbP.Ping})
	}
	if redisP != nil {
		checks = append(checks, check{"redis", redisP.Ping})
	}
	if gcsP != nil {
		checks = append(checks, check{"gcs", gcsP.Ping})
	}
	if pubsubP != nil {
		checks = append(checks, check{"pubsub", pubsubP.Ping})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MuseBox-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, c := range checks {
			if err := c.ping(ctx); err != nil {
				if logg != nil {
					logCtx := logg.WithField(ctx, "component", c.name)
					logg.Error(logCtx, "readiness check failed", err)
				}
				responses.WriteError(r.Context(), nil, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready").
						WithDetails(map[string]any{"component": c.name}))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
