package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skyarcade/score-ledger/internal/models"
)

type published struct {
	channel string
	payload []byte
}

type MockPublisher struct {
	messages []published
	fail     bool
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.fail {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	m.messages = append(m.messages, published{channel: channel, payload: message.([]byte)})
	return cmd
}

func TestRedisEmitterChannels(t *testing.T) {
	pub := &MockPublisher{}
	e := NewRedisEmitter(pub, zap.NewNop())

	e.PlayerRegistered("player-1", 1000)
	e.ScoreSubmitted(models.ScoreSubmission{ID: 3, Identifier: "player-1", Mode: models.ModeBomb, Score: 700, SubmittedAt: 1000})
	e.HighScore("player-1", models.ModeBomb, 0, 700, 1000)
	e.ScoreVerified(3, true, 1001)
	e.SnapshotCreated(models.LeaderboardSnapshot{ID: 0, Mode: models.ModeBomb, CreatedAt: 1002})

	wantChannels := []string{
		"ledger.events.player_registered",
		"ledger.events.score_submitted",
		"ledger.events.high_score",
		"ledger.events.score_verified",
		"ledger.events.snapshot_created",
	}
	if len(pub.messages) != len(wantChannels) {
		t.Fatalf("published %d messages, want %d", len(pub.messages), len(wantChannels))
	}
	for i, want := range wantChannels {
		if pub.messages[i].channel != want {
			t.Errorf("messages[%d].channel = %s, want %s", i, pub.messages[i].channel, want)
		}
	}
}

func TestRedisEmitterEnvelope(t *testing.T) {
	pub := &MockPublisher{}
	e := NewRedisEmitter(pub, zap.NewNop())

	e.HighScore("player-1", models.ModeTwoWay, 100, 250, 5000)

	var n models.Notification
	if err := json.Unmarshal(pub.messages[0].payload, &n); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if n.Type != models.NotifyHighScore {
		t.Errorf("type = %s, want %s", n.Type, models.NotifyHighScore)
	}
	if n.Identifier != "player-1" || n.Mode != "twoway" {
		t.Errorf("identity fields = %s/%s, want player-1/twoway", n.Identifier, n.Mode)
	}
	if n.OldBest != 100 || n.NewBest != 250 {
		t.Errorf("bests = %d/%d, want 100/250", n.OldBest, n.NewBest)
	}
	if n.Timestamp != 5000 {
		t.Errorf("timestamp = %d, want 5000", n.Timestamp)
	}
	if n.ID == "" {
		t.Error("envelope id is empty")
	}
}

func TestRedisEmitterPublishFailureIsDropped(t *testing.T) {
	pub := &MockPublisher{fail: true}
	e := NewRedisEmitter(pub, zap.NewNop())

	// Must not panic or propagate; publish errors are logged and dropped.
	e.PlayerRegistered("player-1", 1000)
}

type MockQueue struct {
	enqueued []models.ScoreSubmission
	full     bool
}

func (m *MockQueue) Enqueue(sub models.ScoreSubmission) bool {
	if m.full {
		return false
	}
	m.enqueued = append(m.enqueued, sub)
	return true
}

func TestExporterMirrorsSubmissions(t *testing.T) {
	q := &MockQueue{}
	e := NewExporter(q, zap.NewNop())

	e.ScoreSubmitted(models.ScoreSubmission{ID: 1, Identifier: "p1"})
	e.PlayerRegistered("p1", 1000) // not mirrored
	e.SnapshotCreated(models.LeaderboardSnapshot{})

	if len(q.enqueued) != 1 {
		t.Fatalf("enqueued %d submissions, want 1", len(q.enqueued))
	}
	if q.enqueued[0].ID != 1 {
		t.Errorf("enqueued id = %d, want 1", q.enqueued[0].ID)
	}
}

func TestExporterToleratesFullQueue(t *testing.T) {
	e := NewExporter(&MockQueue{full: true}, zap.NewNop())
	e.ScoreSubmitted(models.ScoreSubmission{ID: 1})
}

func TestMultiFansOut(t *testing.T) {
	pub1 := &MockPublisher{}
	pub2 := &MockPublisher{}
	m := NewMulti(
		NewRedisEmitter(pub1, zap.NewNop()),
		NewRedisEmitter(pub2, zap.NewNop()),
	)

	m.ScoreSubmitted(models.ScoreSubmission{ID: 9, Identifier: "p1", Mode: models.ModeOneWay})
	m.ScoreVerified(9, true, 1000)

	if len(pub1.messages) != 2 || len(pub2.messages) != 2 {
		t.Errorf("fan-out counts = %d/%d, want 2/2", len(pub1.messages), len(pub2.messages))
	}
}
