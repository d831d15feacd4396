// Package adminhttp serves the broker's optional, localhost-only
// diagnostic surface: liveness, Prometheus metrics, and a read-only dump
// of the remote listener's session registry. Narrowed down from a full
// admin API to just this read-only surface.
package adminhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trustbrokerd/trustbroker/internal/metrics"
)

// SnapshotFunc adapts the remote listener's session registry
// (internal/remote/listener.Registry.Snapshot) to the view this router
// renders, without adminhttp importing internal/remote directly.
type SnapshotFunc func() []SessionView

// SessionView is the JSON shape for one entry of /debug/sessions.
type SessionView struct {
	UID uint32 `json:"uid"`
	PID int32  `json:"pid"`
	GID uint32 `json:"gid"`
}

var startedAt = time.Now()

// NewRouter builds the chi router. snapshot may be nil (the endpoint then
// always reports an empty list), which happens when the broker is
// configured without a remote listener. authSecret, if non-empty,
// requires a valid HS256 bearer token on every route except /healthz.
func NewRouter(snapshot SnapshotFunc, authSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"uptime_sec": int64(time.Since(startedAt).Seconds()),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireBearerToken(authSecret))

		if reg := metrics.GetRegistry(); reg != nil {
			r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		}

		r.Get("/debug/sessions", func(w http.ResponseWriter, req *http.Request) {
			var views []SessionView
			if snapshot != nil {
				views = snapshot()
			}
			if views == nil {
				views = []SessionView{}
			}
			writeJSON(w, http.StatusOK, views)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
