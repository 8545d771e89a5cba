package hc

import (
	"context"
	"net/http"
	"time"

	"lending/handler/render"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

const checkTimeout = 3 * time.Second

// Check probes one dependency, nil means healthy
type Check func(ctx context.Context) error

// Handle handle hc request, any failed check turns the response into a 503
func Handle(ver string, checks map[string]Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Handle("/", handle(ver, checks))
	return r
}

func handle(version string, checks map[string]Check) http.HandlerFunc {
	b := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := render.H{}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := check(ctx)
			cancel()

			if err != nil {
				logger.FromContext(r.Context()).WithError(err).Errorln("health check", name)
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}

			results[name] = "ok"
		}

		uptime := time.Since(b).Truncate(time.Millisecond)
		render.Status(w, status, render.H{
			"uptime":  uptime.String(),
			"version": version,
			"checks":  results,
		})
	}
}
