package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/golacotv/golaco-backend/api/responses"
	"github.com/golacotv/golaco-backend/pkg/config"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Golaco-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness of the backing stores. A nil pinger is
// treated as "not wired" and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	checks := map[string]pinger{
		"database": dbP,
		"redis":    redisP,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Golaco-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, p := range checks {
			if p == nil {
				status[name] = "skipped"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(ctx, "readiness check failed: "+name, err)
				}
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
