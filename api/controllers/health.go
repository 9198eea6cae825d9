package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tradepost/tradepost-backend/api/responses"
	"github.com/tradepost/tradepost-backend/pkg/config"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

const envHeader = "X-Tradepost-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				logCtx := logg.WithField(ctx, "dependency", name)
				logg.Error(logCtx, "readiness check failed", err)
				continue
			}
			checks[name] = "ok"
		}

		for _, status := range checks {
			if status != "ok" {
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// ReadinessDeps builds the standard dependency map for HealthReady.
func ReadinessDeps(db pinger, redis pinger) map[string]pinger {
	return map[string]pinger{
		"postgres": db,
		"redis":    redis,
	}
}
