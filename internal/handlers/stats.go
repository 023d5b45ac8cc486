package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GetSubmission handles GET /api/v1/scores/{id}
// @Summary Get Submission
// @Description Returns one ledger row by its dense submission ID
// @Tags Scores
// @Produce json
// @Param id path int true "Submission ID"
// @Success 200 {object} models.ScoreSubmission "Submission"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /scores/{id} [get]
func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	sub, err := h.ledger.GetSubmission(id)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, sub)
}

// GetPlayerStats handles GET /api/v1/players/{identifier}
// @Summary Get Player Stats
// @Description Returns the aggregate record for an identifier
// @Tags Players
// @Produce json
// @Param identifier path string true "Player identifier"
// @Success 200 {object} map[string]interface{} "Aggregates"
// @Router /players/{identifier} [get]
func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	stats, exists := h.ledger.PlayerStats(identifier)
	if !exists {
		// Unregistered identifiers read back as zero aggregates, not 404.
		// The exists flag lets callers tell "never played" from "all zeros".
		h.jsonResponse(w, http.StatusOK, map[string]interface{}{
			"identifier": identifier,
			"exists":     false,
		})
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"identifier": identifier,
		"exists":     true,
		"stats":      stats,
	})
}

// GetPlayerSubmissions handles GET /api/v1/players/{identifier}/scores
// @Summary Get Player Submissions
// @Description Lists the identifier's accepted submissions in ledger order
// @Tags Players
// @Produce json
// @Param identifier path string true "Player identifier"
// @Success 200 {object} map[string]interface{} "Submissions"
// @Router /players/{identifier}/scores [get]
func (h *Handler) GetPlayerSubmissions(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	subs := h.ledger.PlayerSubmissions(identifier)

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"identifier":  identifier,
		"count":       len(subs),
		"submissions": subs,
	})
}

// GetPlayerBestScore handles GET /api/v1/players/{identifier}/best/{mode}
// @Summary Get Player Best Score
// @Description Returns the running best for the identifier in one mode; zero if unranked
// @Tags Players
// @Produce json
// @Param identifier path string true "Player identifier"
// @Param mode path string true "Game mode"
// @Success 200 {object} map[string]interface{} "Best score"
// @Failure 400 {object} map[string]string "Invalid mode"
// @Router /players/{identifier}/best/{mode} [get]
func (h *Handler) GetPlayerBestScore(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	mode, ok := h.parseMode(w, r)
	if !ok {
		return
	}

	best, err := h.ledger.PlayerBestScore(identifier, mode)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"identifier": identifier,
		"mode":       mode,
		"best_score": best,
	})
}

// GetStats handles GET /api/v1/stats
// @Summary Get Ledger Stats
// @Description Ledger-wide totals: submissions, players, snapshots, ranked players per mode
// @Tags Stats
// @Produce json
// @Success 200 {object} models.LedgerStats "Totals"
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.ledger.Stats())
}
