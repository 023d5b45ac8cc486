// Package notify fans committed ledger mutations out to external
// collaborators: a Redis pub/sub channel per notification type for
// downstream indexers, and the analytics export queue. Emitters never fail
// the mutation that produced the notification; publish errors are logged
// and dropped.
package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skyarcade/score-ledger/internal/ledger"
	"github.com/skyarcade/score-ledger/internal/models"
)

// ChannelPrefix is prepended to the notification type to form the pub/sub
// channel name, e.g. "ledger.events.high_score".
const ChannelPrefix = "ledger.events."

// Publisher is the slice of redis.Client the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisEmitter publishes JSON notification envelopes to Redis pub/sub.
type RedisEmitter struct {
	client Publisher
	logger *zap.SugaredLogger
}

func NewRedisEmitter(client Publisher, logger *zap.Logger) *RedisEmitter {
	return &RedisEmitter{client: client, logger: logger.Sugar()}
}

func (e *RedisEmitter) publish(n models.Notification) {
	payload, err := n.MarshalBinary()
	if err != nil {
		e.logger.Errorw("Failed to marshal notification", "type", n.Type, "error", err)
		return
	}
	channel := ChannelPrefix + string(n.Type)
	if err := e.client.Publish(context.Background(), channel, payload).Err(); err != nil {
		e.logger.Warnw("Failed to publish notification", "channel", channel, "error", err)
	}
}

func (e *RedisEmitter) PlayerRegistered(identifier string, ts int64) {
	n := models.NewNotification(models.NotifyPlayerRegistered, ts)
	n.Identifier = identifier
	e.publish(n)
}

func (e *RedisEmitter) ScoreSubmitted(sub models.ScoreSubmission) {
	n := models.NewNotification(models.NotifyScoreSubmitted, sub.SubmittedAt)
	n.Identifier = sub.Identifier
	n.Mode = sub.Mode.String()
	n.Submission = sub.ID
	n.Score = sub.Score
	e.publish(n)
}

func (e *RedisEmitter) HighScore(identifier string, mode models.GameMode, oldBest, newBest uint64, ts int64) {
	n := models.NewNotification(models.NotifyHighScore, ts)
	n.Identifier = identifier
	n.Mode = mode.String()
	n.OldBest = oldBest
	n.NewBest = newBest
	e.publish(n)
}

func (e *RedisEmitter) ScoreVerified(id uint64, verified bool, ts int64) {
	n := models.NewNotification(models.NotifyScoreVerified, ts)
	n.Submission = id
	n.Verified = verified
	e.publish(n)
}

func (e *RedisEmitter) SnapshotCreated(snap models.LeaderboardSnapshot) {
	n := models.NewNotification(models.NotifySnapshotCreated, snap.CreatedAt)
	n.Mode = snap.Mode.String()
	n.Snapshot = snap.ID
	e.publish(n)
}

// ExportQueue is the analytics exporter's intake; Enqueue reports whether
// the submission was queued or shed.
type ExportQueue interface {
	Enqueue(sub models.ScoreSubmission) bool
}

// Exporter adapts the export queue onto the emitter surface. Only accepted
// submissions are mirrored to analytics; the other notification types are
// covered by pub/sub.
type Exporter struct {
	queue  ExportQueue
	logger *zap.SugaredLogger
}

func NewExporter(queue ExportQueue, logger *zap.Logger) *Exporter {
	return &Exporter{queue: queue, logger: logger.Sugar()}
}

func (e *Exporter) ScoreSubmitted(sub models.ScoreSubmission) {
	if !e.queue.Enqueue(sub) {
		e.logger.Warnw("Analytics export queue rejected submission", "submission", sub.ID)
	}
}

func (e *Exporter) PlayerRegistered(string, int64)                           {}
func (e *Exporter) HighScore(string, models.GameMode, uint64, uint64, int64) {}
func (e *Exporter) ScoreVerified(uint64, bool, int64)                        {}
func (e *Exporter) SnapshotCreated(models.LeaderboardSnapshot)               {}

// Multi broadcasts every notification to each wrapped emitter in order.
type Multi struct {
	emitters []ledger.Emitter
}

func NewMulti(emitters ...ledger.Emitter) *Multi {
	return &Multi{emitters: emitters}
}

func (m *Multi) PlayerRegistered(identifier string, ts int64) {
	for _, e := range m.emitters {
		e.PlayerRegistered(identifier, ts)
	}
}

func (m *Multi) ScoreSubmitted(sub models.ScoreSubmission) {
	for _, e := range m.emitters {
		e.ScoreSubmitted(sub)
	}
}

func (m *Multi) HighScore(identifier string, mode models.GameMode, oldBest, newBest uint64, ts int64) {
	for _, e := range m.emitters {
		e.HighScore(identifier, mode, oldBest, newBest, ts)
	}
}

func (m *Multi) ScoreVerified(id uint64, verified bool, ts int64) {
	for _, e := range m.emitters {
		e.ScoreVerified(id, verified, ts)
	}
}

func (m *Multi) SnapshotCreated(snap models.LeaderboardSnapshot) {
	for _, e := range m.emitters {
		e.SnapshotCreated(snap)
	}
}
