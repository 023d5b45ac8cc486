package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skyarcade/score-ledger/internal/models"
)

// GetLeaderboard handles GET /api/v1/leaderboard/{mode}
// @Summary Get Leaderboard
// @Description Live top-N ranking for a mode, strict ordinal ranks, stable tie-break
// @Tags Leaderboard
// @Produce json
// @Param mode path string true "Game mode"
// @Param limit query int false "Entries to return"
// @Success 200 {object} map[string]interface{} "Ranking"
// @Failure 400 {object} map[string]string "Invalid mode"
// @Router /leaderboard/{mode} [get]
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.parseMode(w, r)
	if !ok {
		return
	}

	limit := h.defaultTopN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.errorResponse(w, http.StatusBadRequest, "Invalid limit: "+raw)
			return
		}
		limit = n
	}

	entries, err := h.ledger.RankTopN(mode, limit)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"mode":    mode,
		"limit":   limit,
		"count":   len(entries),
		"entries": entries,
	})
}

// GetPlayerRank handles GET /api/v1/players/{identifier}/rank/{mode}
// @Summary Get Player Rank
// @Description Shared-position rank; tied players report the same position, unranked report 0
// @Tags Players
// @Produce json
// @Param identifier path string true "Player identifier"
// @Param mode path string true "Game mode"
// @Success 200 {object} models.PlayerRankResponse "Rank"
// @Failure 400 {object} map[string]string "Invalid mode"
// @Router /players/{identifier}/rank/{mode} [get]
func (h *Handler) GetPlayerRank(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	mode, ok := h.parseMode(w, r)
	if !ok {
		return
	}

	position, total, err := h.ledger.PlayerRank(identifier, mode)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, models.PlayerRankResponse{
		Identifier:   identifier,
		Mode:         mode.String(),
		Position:     position,
		TotalPlayers: total,
	})
}

// CreateSnapshot handles POST /api/v1/snapshots
// @Summary Create Snapshot
// @Description Freezes the current top-N ranking of a mode into an immutable archive record
// @Tags Snapshots
// @Security AdminToken
// @Accept json
// @Produce json
// @Param body body models.CreateSnapshotRequest true "Snapshot"
// @Success 201 {object} map[string]uint64 "Snapshot ID"
// @Failure 409 {object} map[string]string "Empty leaderboard"
// @Router /snapshots [post]
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.CreateSnapshotRequest
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

	id, err := h.ledger.CreateSnapshot(r.Context(), adminToken(r), mode, req.Period, req.StartTime, req.EndTime, req.TopN)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusCreated, map[string]uint64{"snapshot_id": id})
}

// GetSnapshot handles GET /api/v1/snapshots/{id}
// @Summary Get Snapshot
// @Description Returns the full archival record including frozen entries
// @Tags Snapshots
// @Produce json
// @Param id path int true "Snapshot ID"
// @Success 200 {object} models.LeaderboardSnapshot "Snapshot"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /snapshots/{id} [get]
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid snapshot id")
		return
	}

	snap, err := h.ledger.Snapshot(id)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, snap)
}

// GetSnapshotEntries handles GET /api/v1/snapshots/{id}/entries
// @Summary Get Snapshot Entries
// @Description Returns only the frozen entry list of a snapshot
// @Tags Snapshots
// @Produce json
// @Param id path int true "Snapshot ID"
// @Success 200 {object} map[string]interface{} "Entries"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /snapshots/{id}/entries [get]
func (h *Handler) GetSnapshotEntries(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid snapshot id")
		return
	}

	entries, err := h.ledger.SnapshotEntries(id)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"snapshot_id": id,
		"count":       len(entries),
		"entries":     entries,
	})
}

// GetModeSnapshots handles GET /api/v1/modes/{mode}/snapshots
// @Summary List Mode Snapshots
// @Description Snapshot IDs recorded for a mode, oldest first
// @Tags Snapshots
// @Produce json
// @Param mode path string true "Game mode"
// @Success 200 {object} map[string]interface{} "Snapshot IDs"
// @Failure 400 {object} map[string]string "Invalid mode"
// @Router /modes/{mode}/snapshots [get]
func (h *Handler) GetModeSnapshots(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.parseMode(w, r)
	if !ok {
		return
	}

	ids, err := h.ledger.ModeSnapshots(mode)
	if err != nil {
		h.ledgerError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"mode":         mode,
		"count":        len(ids),
		"snapshot_ids": ids,
	})
}
