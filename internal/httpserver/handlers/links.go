package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/controller"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
)

const maxCommandBytes = 1 << 20

// View returns the current projection.
func View(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Logger, http.StatusOK, d.Controller.State())
	}
}

// GetLink returns one link of the collection.
func GetLink(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, d.Logger, apperror.ValidationFailed("id", "id must be a positive integer"), nil)
			return
		}
		for _, l := range d.Controller.Snapshot().Links {
			if l.ID == id {
				writeJSON(w, d.Logger, http.StatusOK, l)
				return
			}
		}
		writeError(w, d.Logger, apperror.NotFound("link", id), nil)
	}
}

// Commands runs one controller command and returns the new state. A failed
// command still returns the state next to the error.
func Commands(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd controller.Command
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cmd); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, d.Logger, http.StatusRequestEntityTooLarge, errorResponse{
					Error: "command body too large",
					Code:  "validation",
				})
				return
			}
			writeError(w, d.Logger, apperror.ValidationFailed("body", "invalid command: "+err.Error()), nil)
			return
		}

		st, err := d.Controller.Dispatch(r.Context(), cmd)
		if err != nil {
			writeError(w, d.Logger, err, st)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, st)
	}
}
