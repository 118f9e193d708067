package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/divvyup/divvyup-backend/api/responses"
	"github.com/divvyup/divvyup-backend/pkg/config"
	pkgerrors "github.com/divvyup/divvyup-backend/pkg/errors"
	"github.com/divvyup/divvyup-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DivvyUp-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the datastores the API cannot serve without.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DivvyUp-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var probeErr error
		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				probeErr = multierr.Append(probeErr, fmt.Errorf("database: %w", err))
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				probeErr = multierr.Append(probeErr, fmt.Errorf("redis: %w", err))
			}
		}

		if probeErr != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, probeErr, "readiness probe failed"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
