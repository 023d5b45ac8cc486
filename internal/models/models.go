package models

import (
	"encoding/json"
	"fmt"
)

// GameMode is one of the four fixed gameplay variants scored independently.
type GameMode uint8

const (
	ModeOneWay GameMode = iota
	ModeTwoWay
	ModeTimeAttack
	ModeBomb

	// GameModeCount bounds per-mode arrays. Keep last.
	GameModeCount = 4
)

var modeNames = [GameModeCount]string{"oneway", "twoway", "timeattack", "bomb"}

func (m GameMode) Valid() bool {
	return m < GameModeCount
}

func (m GameMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("gamemode(%d)", uint8(m))
	}
	return modeNames[m]
}

// ParseGameMode maps the wire name to a GameMode.
func ParseGameMode(s string) (GameMode, bool) {
	for i, name := range modeNames {
		if s == name {
			return GameMode(i), true
		}
	}
	return 0, false
}

func (m GameMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *GameMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, ok := ParseGameMode(s)
	if !ok {
		return fmt.Errorf("unknown game mode %q", s)
	}
	*m = mode
	return nil
}

// ScoreSubmission is one accepted row in the append-only ledger.
// Immutable once written except for Verified.
type ScoreSubmission struct {
	ID          uint64   `json:"id"`
	Identifier  string   `json:"identifier"`
	Submitter   string   `json:"submitter,omitempty"`
	Mode        GameMode `json:"mode"`
	Score       uint64   `json:"score"`
	Distance    uint64   `json:"distance"`
	Currency    uint64   `json:"currency"`
	PlayTime    uint64   `json:"play_time"`
	SubmittedAt int64    `json:"submitted_at"`
	Verified    bool     `json:"verified"`
}

// PlayerStats is the per-identifier aggregate record. Created on the first
// accepted submission, mutated on every subsequent one, never deleted.
type PlayerStats struct {
	Identifier   string                `json:"identifier"`
	BestScores   [GameModeCount]uint64 `json:"best_scores"`
	GamesPlayed  uint64                `json:"games_played"`
	TotalScore   uint64                `json:"total_score"`
	LastPlayedAt int64                 `json:"last_played_at"`
	RegisteredAt int64                 `json:"registered_at"`
}

// LeaderboardEntry is one ranked row of a leaderboard view or snapshot.
type LeaderboardEntry struct {
	Identifier string `json:"identifier"`
	Score      uint64 `json:"score"`
	Rank       int    `json:"rank"`
}

// LeaderboardSnapshot is an immutable point-in-time freeze of a top-N
// ranking. Entries never change after creation.
type LeaderboardSnapshot struct {
	ID        uint64             `json:"id"`
	Mode      GameMode           `json:"mode"`
	Period    string             `json:"period"`
	StartTime int64              `json:"start_time"`
	EndTime   int64              `json:"end_time"`
	CreatedAt int64              `json:"created_at"`
	Entries   []LeaderboardEntry `json:"entries"`
}

// AntiCheatParams are the admission-gate bounds, adjustable at runtime.
type AntiCheatParams struct {
	MinSubmissionInterval int64  `json:"min_submission_interval"`
	MaxScorePerSubmission uint64 `json:"max_score_per_submission"`
}

// LedgerStats summarizes the whole ledger for GET /stats.
type LedgerStats struct {
	TotalSubmissions uint64                `json:"total_submissions"`
	TotalPlayers     uint64                `json:"total_players"`
	TotalSnapshots   uint64                `json:"total_snapshots"`
	RankedPlayers    [GameModeCount]uint64 `json:"ranked_players"`
}
