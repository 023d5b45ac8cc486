package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skyarcade/score-ledger/internal/ledger"
	"github.com/skyarcade/score-ledger/internal/models"
)

// Routes mounts every boundary operation. Mutating endpoints carry the
// administrative capability in a header; the ledger itself decides
// authorization, the router only shapes the surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scores", h.SubmitScore)
		r.Post("/scores/batch", h.BatchSubmitScores)
		r.Get("/scores/{id}", h.GetSubmission)
		r.Post("/scores/{id}/verify", h.VerifyScore)

		r.Get("/players/{identifier}", h.GetPlayerStats)
		r.Get("/players/{identifier}/scores", h.GetPlayerSubmissions)
		r.Get("/players/{identifier}/best/{mode}", h.GetPlayerBestScore)
		r.Get("/players/{identifier}/rank/{mode}", h.GetPlayerRank)

		r.Get("/leaderboard/{mode}", h.GetLeaderboard)

		r.Post("/snapshots", h.CreateSnapshot)
		r.Get("/snapshots/{id}", h.GetSnapshot)
		r.Get("/snapshots/{id}/entries", h.GetSnapshotEntries)
		r.Get("/modes/{mode}/snapshots", h.GetModeSnapshots)

		r.Put("/admin/anticheat", h.UpdateAntiCheatParams)
		r.Get("/stats", h.GetStats)
	})

	return r
}

// adminToken extracts the capability presented by the caller. The engine
// performs the presence check; an empty token simply fails it.
func adminToken(r *http.Request) string {
	if token := r.Header.Get("X-Admin-Token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{}
	if h.pg != nil {
		checks["postgres"] = h.pg.Ping(ctx) == nil
	}
	if h.ch != nil {
		checks["clickhouse"] = h.ch.Ping(ctx) == nil
	}
	if h.redis != nil {
		checks["redis"] = h.redis.Ping(ctx).Err() == nil
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	body := map[string]interface{}{
		"ready":  allHealthy,
		"checks": checks,
	}
	if h.pool != nil {
		body["queueDepth"] = h.pool.QueueDepth()
	}
	h.jsonResponse(w, status, body)
}

// parseMode resolves the {mode} URL parameter, writing the error response
// itself on failure.
func (h *Handler) parseMode(w http.ResponseWriter, r *http.Request) (models.GameMode, bool) {
	name := chi.URLParam(r, "mode")
	mode, ok := models.ParseGameMode(name)
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "Invalid game mode: "+name)
		return 0, false
	}
	return mode, true
}

// ledgerError maps engine errors onto HTTP statuses.
func (h *Handler) ledgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotAuthorized):
		h.errorResponse(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		h.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrSubmissionTooFrequent):
		h.errorResponse(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ledger.ErrEmptyLeaderboard):
		h.errorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInvalidGameMode),
		errors.Is(err, ledger.ErrScoreTooHigh),
		errors.Is(err, ledger.ErrArrayLengthMismatch),
		errors.Is(err, ledger.ErrInvalidParams):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorw("Unexpected ledger error", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Internal error")
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
