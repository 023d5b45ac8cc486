package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skyarcade/score-ledger/internal/ledger"
	"github.com/skyarcade/score-ledger/internal/models"
)

// SubmitScore handles POST /api/v1/scores
// @Summary Submit Score
// @Description Admits one score submission for a player identifier
// @Tags Scores
// @Accept json
// @Produce json
// @Security AdminToken
// @Param body body models.SubmitScoreRequest true "Submission"
// @Success 201 {object} map[string]uint64 "Submission ID"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 429 {object} map[string]string "Too Frequent"
// @Router /scores [post]
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	mode, ok := models.ParseGameMode(req.Mode)
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "Invalid game mode: "+req.Mode)
		return
	}

	id, err := h.ledger.Submit(r.Context(), adminToken(r), req.Identifier, req.Submitter, ledger.Play{
		Mode:     mode,
		Score:    req.Score,
		Distance: req.Distance,
		Currency: req.Currency,
		PlayTime: req.PlayTime,
	})
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusCreated, map[string]uint64{"submission_id": id})
}

// BatchSubmitScores handles POST /api/v1/scores/batch
// @Summary Batch Submit Scores
// @Description Admits an offline session of plays for one identifier; all or nothing
// @Tags Scores
// @Accept json
// @Produce json
// @Security AdminToken
// @Param body body models.BatchSubmitRequest true "Batch"
// @Success 201 {object} map[string][]uint64 "Submission IDs"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /scores/batch [post]
func (h *Handler) BatchSubmitScores(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.BatchSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	// Mode names resolve here; length skew is the ledger's call so the
	// whole batch still rejects atomically with ArrayLengthMismatch.
	modes := make([]models.GameMode, 0, len(req.Modes))
	for _, name := range req.Modes {
		mode, ok := models.ParseGameMode(name)
		if !ok {
			h.errorResponse(w, http.StatusBadRequest, "Invalid game mode: "+name)
			return
		}
		modes = append(modes, mode)
	}

	ids, err := h.ledger.BatchSubmit(r.Context(), adminToken(r), req.Identifier, req.Submitter,
		modes, req.Scores, req.Distances, req.Currencies, req.PlayTimes)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusCreated, map[string][]uint64{"submission_ids": ids})
}

// VerifyScore handles POST /api/v1/scores/{id}/verify
// @Summary Verify Score
// @Description Toggles the advisory verified flag; never alters rankings
// @Tags Scores
// @Security AdminToken
// @Accept json
// @Produce json
// @Param id path int true "Submission ID"
// @Param body body models.VerifyScoreRequest true "Flag"
// @Success 200 {object} map[string]interface{} "Updated"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /scores/{id}/verify [post]
func (h *Handler) VerifyScore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	var req models.VerifyScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.ledger.Verify(r.Context(), adminToken(r), id, req.Verified); err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"submission_id": id,
		"verified":      req.Verified,
	})
}

// UpdateAntiCheatParams handles PUT /api/v1/admin/anticheat
// @Summary Update Anti-Cheat Params
// @Description Replaces the admission-gate interval and score bounds
// @Tags Admin
// @Security AdminToken
// @Accept json
// @Produce json
// @Param body body models.UpdateAntiCheatRequest true "Params"
// @Success 200 {object} models.AntiCheatParams "Active Params"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /admin/anticheat [put]
func (h *Handler) UpdateAntiCheatParams(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateAntiCheatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	params := models.AntiCheatParams{
		MinSubmissionInterval: req.MinSubmissionInterval,
		MaxScorePerSubmission: req.MaxScorePerSubmission,
	}
	if err := h.ledger.UpdateAntiCheatParams(r.Context(), adminToken(r), params); err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, h.ledger.Params())
}
