package ledger

import "errors"

// Admission and lookup errors. Every rejection is atomic: no partial state
// change precedes any of these.
var (
	// ErrNotAuthorized means the presented token is not the administrative
	// capability. Checked before anything else on every mutating call.
	ErrNotAuthorized = errors.New("caller lacks administrative capability")

	// ErrInvalidGameMode means the mode is not one of the four variants.
	ErrInvalidGameMode = errors.New("invalid game mode")

	// ErrScoreTooHigh means the score exceeds MaxScorePerSubmission.
	ErrScoreTooHigh = errors.New("score exceeds per-submission maximum")

	// ErrSubmissionTooFrequent means MinSubmissionInterval has not elapsed
	// since the identifier's last accepted submission in any mode.
	ErrSubmissionTooFrequent = errors.New("minimum submission interval not elapsed")

	// ErrArrayLengthMismatch rejects a batch whose parallel arrays differ
	// in length.
	ErrArrayLengthMismatch = errors.New("batch arrays differ in length")

	// ErrNotFound is returned for any out-of-range id on a lookup.
	ErrNotFound = errors.New("not found")

	// ErrEmptyLeaderboard rejects a snapshot of a mode with no ranked
	// players.
	ErrEmptyLeaderboard = errors.New("no ranked players in game mode")

	// ErrInvalidParams rejects anti-cheat bounds of zero; use
	// UpdateAntiCheatParams with explicit positive values instead.
	ErrInvalidParams = errors.New("anti-cheat params must be positive")
)
