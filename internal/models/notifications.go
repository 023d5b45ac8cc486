package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NotificationType names an observable side effect of a ledger mutation.
type NotificationType string

const (
	NotifyPlayerRegistered NotificationType = "player_registered"
	NotifyScoreSubmitted   NotificationType = "score_submitted"
	NotifyHighScore        NotificationType = "high_score"
	NotifyScoreVerified    NotificationType = "score_verified"
	NotifySnapshotCreated  NotificationType = "snapshot_created"
)

// Notification is the envelope published to downstream indexers. Timestamp
// is the ledger timestamp of the mutation that produced it, not wall time at
// publish.
type Notification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	Identifier string           `json:"identifier,omitempty"`
	Mode       string           `json:"mode,omitempty"`
	Submission uint64           `json:"submission_id,omitempty"`
	Snapshot   uint64           `json:"snapshot_id,omitempty"`
	Score      uint64           `json:"score,omitempty"`
	OldBest    uint64           `json:"old_best,omitempty"`
	NewBest    uint64           `json:"new_best,omitempty"`
	Verified   bool             `json:"verified,omitempty"`
	Timestamp  int64            `json:"timestamp"`
}

// MarshalBinary lets a Notification be handed straight to redis Publish.
func (n Notification) MarshalBinary() ([]byte, error) {
	return json.Marshal(n)
}

// NewNotification stamps a fresh envelope of the given type.
func NewNotification(t NotificationType, ts int64) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: ts,
	}
}
