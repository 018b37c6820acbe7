package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/scheduler"
)

type reloadResponse struct {
	Status string `json:"status"`
}

// Reload queues a background reload from the remote service. It answers 429
// while one is already queued.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReloadTrigger != nil && scheduler.Trigger(d.ReloadTrigger) {
			d.Logger.Info("manual reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, d.Logger, http.StatusAccepted, reloadResponse{Status: "reload triggered"})
			return
		}

		d.Logger.Warn("reload already in progress",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, d.Logger, http.StatusTooManyRequests, reloadResponse{Status: "reload already in progress"})
	}
}
