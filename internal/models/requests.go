package models

// SubmitScoreRequest is the body of POST /api/v1/scores.
// Score bounds and submission frequency are enforced by the ledger, not the
// validator, so rejections stay attributable to the admission gate.
type SubmitScoreRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Submitter  string `json:"submitter,omitempty"`
	Mode       string `json:"mode" validate:"required"`
	Score      uint64 `json:"score"`
	Distance   uint64 `json:"distance"`
	Currency   uint64 `json:"currency"`
	PlayTime   uint64 `json:"play_time"`
}

// BatchSubmitRequest carries one offline session as parallel arrays, one
// element per play. The ledger rejects the whole batch if the arrays differ
// in length.
type BatchSubmitRequest struct {
	Identifier string   `json:"identifier" validate:"required"`
	Submitter  string   `json:"submitter,omitempty"`
	Modes      []string `json:"modes" validate:"required,min=1"`
	Scores     []uint64 `json:"scores" validate:"required"`
	Distances  []uint64 `json:"distances" validate:"required"`
	Currencies []uint64 `json:"currencies" validate:"required"`
	PlayTimes  []uint64 `json:"play_times" validate:"required"`
}

// VerifyScoreRequest toggles the advisory verified flag on a submission.
type VerifyScoreRequest struct {
	Verified bool `json:"verified"`
}

// CreateSnapshotRequest is the body of POST /api/v1/snapshots.
type CreateSnapshotRequest struct {
	Mode      string `json:"mode" validate:"required"`
	Period    string `json:"period" validate:"required"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time" validate:"gtefield=StartTime"`
	TopN      int    `json:"top_n" validate:"required,gt=0"`
}

// UpdateAntiCheatRequest adjusts the admission-gate bounds.
type UpdateAntiCheatRequest struct {
	MinSubmissionInterval int64  `json:"min_submission_interval" validate:"gt=0"`
	MaxScorePerSubmission uint64 `json:"max_score_per_submission" validate:"gt=0"`
}

// PlayerRankResponse reports the shared-position rank formula: position is
// 1 + count of strictly greater best scores, or 0 for an unranked player.
type PlayerRankResponse struct {
	Identifier   string `json:"identifier"`
	Mode         string `json:"mode"`
	Position     int    `json:"position"`
	TotalPlayers int    `json:"total_players"`
}
