package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/storage"
)

type readyzResponse struct {
	Ready           bool   `json:"ready"`
	Storage         string `json:"storage"`
	Links           int    `json:"links"`
	Stale           bool   `json:"stale"`
	NeedsCredential bool   `json:"needs_credential"`
}

// Readyz reports ready once the storage substrate answers. A stale or
// credential-less collection is still ready: it serves the cache.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Storage: "ok"}

		if p, ok := d.Storage.(storage.Pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				d.Logger.Warn("storage ping failed", logger.Error(err))
				resp.Ready = false
				resp.Storage = "unreachable"
			}
		}

		if d.Controller != nil {
			snap := d.Controller.Snapshot()
			resp.Links = len(snap.Links)
			resp.Stale = snap.Stale
			resp.NeedsCredential = snap.NeedsCredential
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, d.Logger, status, resp)
	}
}
