package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports the status of the database and the cache.
type Health struct {
	db    Pinger
	cache Pinger
}

// NewHealth creates the health handler. cache may be nil.
func NewHealth(db, cache Pinger) *Health {
	return &Health{db: db, cache: cache}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Check pings both backends concurrently. A database failure makes the
// service unavailable; a cache failure only degrades it.
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Cache: "ok"}
	var g errgroup.Group
	g.Go(func() error {
		if err := h.db.Ping(ctx); err != nil {
			slog.Warn("health: database unreachable", "error", err)
			resp.Database = "unavailable"
		}
		return nil
	})
	g.Go(func() error {
		if h.cache == nil {
			resp.Cache = "disabled"
			return nil
		}
		if err := h.cache.Ping(ctx); err != nil {
			slog.Warn("health: cache unreachable", "error", err)
			resp.Cache = "unavailable"
		}
		return nil
	})
	_ = g.Wait()

	status := http.StatusOK
	switch {
	case resp.Database != "ok":
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	case resp.Cache == "unavailable":
		resp.Status = "degraded"
	}
	respondJSON(w, status, resp)
}
