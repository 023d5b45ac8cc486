// Package ledger implements the single-writer ranked score ledger: the
// admission gate, the append-only submission ledger, per-player aggregates,
// per-mode best-score tracking, the ranking engine and the snapshot archive.
//
// All authoritative state lives in memory behind one RWMutex. Mutating
// operations run to completion under the write lock (atomic accept-or-reject,
// no partial effects); reads run under the read lock and observe the most
// recently committed state. Durability and fan-out are delegated to the
// injected Journal and Emitter, whose failures never roll back a committed
// mutation.
package ledger

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skyarcade/score-ledger/internal/models"
)

// Default admission-gate bounds, adjustable via UpdateAntiCheatParams.
const (
	DefaultMinSubmissionInterval = 30 // seconds, across all modes
	DefaultMaxScorePerSubmission = 1_000_000
)

// Emitter receives the observable side effects of committed mutations.
// Implementations must not block for long; they are called outside the
// ledger lock and their failures are their own to report.
type Emitter interface {
	PlayerRegistered(identifier string, ts int64)
	ScoreSubmitted(sub models.ScoreSubmission)
	HighScore(identifier string, mode models.GameMode, oldBest, newBest uint64, ts int64)
	ScoreVerified(id uint64, verified bool, ts int64)
	SnapshotCreated(snap models.LeaderboardSnapshot)
}

// Journal persists committed mutations for startup replay. The in-memory
// state stays authoritative: a journal error is logged and counted, not
// rolled back.
type Journal interface {
	AppendSubmissions(ctx context.Context, subs []models.ScoreSubmission) error
	SetVerified(ctx context.Context, id uint64, verified bool) error
	AppendSnapshot(ctx context.Context, snap models.LeaderboardSnapshot) error
	SaveParams(ctx context.Context, p models.AntiCheatParams) error
}

// Play is one gameplay result inside a submission or batch.
type Play struct {
	Mode     models.GameMode
	Score    uint64
	Distance uint64
	Currency uint64
	PlayTime uint64
}

// Config wires a Ledger. Emitter and Journal may be nil; Params fields at
// zero fall back to the defaults.
type Config struct {
	AdminToken string
	Params     models.AntiCheatParams
	Emitter    Emitter
	Journal    Journal
	Logger     *zap.Logger
	Now        func() int64 // test hook; defaults to time.Now().Unix
}

// Ledger is the engine. Construct with New, share by pointer.
type Ledger struct {
	mu sync.RWMutex

	capHash [sha256.Size]byte
	params  models.AntiCheatParams

	submissions []models.ScoreSubmission
	players     map[string]*models.PlayerStats
	byPlayer    map[string][]uint64
	// membership[mode] lists identifiers in the order they first achieved a
	// nonzero best score. Never compacted; this order is the permanent
	// ranking tie-break.
	membership [models.GameModeCount][]string

	snapshots []models.LeaderboardSnapshot
	byMode    [models.GameModeCount][]uint64

	emitter Emitter
	journal Journal
	logger  *zap.SugaredLogger
	now     func() int64
}

type nopEmitter struct{}

func (nopEmitter) PlayerRegistered(string, int64)                           {}
func (nopEmitter) ScoreSubmitted(models.ScoreSubmission)                    {}
func (nopEmitter) HighScore(string, models.GameMode, uint64, uint64, int64) {}
func (nopEmitter) ScoreVerified(uint64, bool, int64)                        {}
func (nopEmitter) SnapshotCreated(models.LeaderboardSnapshot)               {}

// NopEmitter discards all notifications.
func NopEmitter() Emitter { return nopEmitter{} }

// New constructs an empty ledger.
func New(cfg Config) *Ledger {
	if cfg.Params.MinSubmissionInterval <= 0 {
		cfg.Params.MinSubmissionInterval = DefaultMinSubmissionInterval
	}
	if cfg.Params.MaxScorePerSubmission == 0 {
		cfg.Params.MaxScorePerSubmission = DefaultMaxScorePerSubmission
	}
	if cfg.Emitter == nil {
		cfg.Emitter = nopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().Unix() }
	}

	return &Ledger{
		capHash:  sha256.Sum256([]byte(cfg.AdminToken)),
		params:   cfg.Params,
		players:  make(map[string]*models.PlayerStats),
		byPlayer: make(map[string][]uint64),
		emitter:  cfg.Emitter,
		journal:  cfg.Journal,
		logger:   cfg.Logger.Sugar(),
		now:      cfg.Now,
	}
}

// authorized checks capability presence. Identity verification belongs to
// the boundary; the engine only compares the token against its capability.
func (l *Ledger) authorized(token string) bool {
	h := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(h[:], l.capHash[:]) == 1
}

// Submit runs the admission pipeline for one play. Checks run in order:
// capability, mode validity, score bound, submission interval. On success it
// lazily registers the identifier, appends the submission, updates the
// aggregates and considers a best-score update. The identifier's
// last-submission time moves exactly once, at the end.
func (l *Ledger) Submit(ctx context.Context, token, identifier, submitter string, play Play) (uint64, error) {
	ids, err := l.BatchSubmit(ctx, token, identifier, submitter,
		[]models.GameMode{play.Mode}, []uint64{play.Score}, []uint64{play.Distance},
		[]uint64{play.Currency}, []uint64{play.PlayTime})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// BatchSubmit admits an offline session for one identifier. The per-item
// score bound applies to every element, but the interval check runs once
// against the pre-batch last-submission time: items inside a batch are not
// rate-limited against each other, and all share one ledger timestamp. A
// failing item aborts the whole batch with nothing recorded.
func (l *Ledger) BatchSubmit(ctx context.Context, token, identifier, submitter string,
	modes []models.GameMode, scores, distances, currencies, playTimes []uint64) ([]uint64, error) {

	l.mu.Lock()

	if !l.authorized(token) {
		l.mu.Unlock()
		submissionsRejected.WithLabelValues(reasonNotAuthorized).Inc()
		return nil, ErrNotAuthorized
	}
	n := len(modes)
	if len(scores) != n || len(distances) != n || len(currencies) != n || len(playTimes) != n {
		l.mu.Unlock()
		submissionsRejected.WithLabelValues(reasonLengthSkew).Inc()
		return nil, ErrArrayLengthMismatch
	}
	for _, mode := range modes {
		if !mode.Valid() {
			l.mu.Unlock()
			submissionsRejected.WithLabelValues(reasonInvalidMode).Inc()
			return nil, ErrInvalidGameMode
		}
	}
	for _, score := range scores {
		if score > l.params.MaxScorePerSubmission {
			l.mu.Unlock()
			submissionsRejected.WithLabelValues(reasonScoreTooHigh).Inc()
			return nil, ErrScoreTooHigh
		}
	}

	now := l.now()
	stats, seen := l.players[identifier]
	if seen && now-stats.LastPlayedAt < l.params.MinSubmissionInterval {
		l.mu.Unlock()
		submissionsRejected.WithLabelValues(reasonTooFrequent).Inc()
		return nil, ErrSubmissionTooFrequent
	}

	// All checks passed; everything below commits.
	var emissions []func()

	if !seen {
		stats = &models.PlayerStats{Identifier: identifier, RegisteredAt: now}
		l.players[identifier] = stats
		id := identifier
		emissions = append(emissions, func() { l.emitter.PlayerRegistered(id, now) })
	}

	ids := make([]uint64, 0, n)
	accepted := make([]models.ScoreSubmission, 0, n)
	for i := 0; i < n; i++ {
		sub := models.ScoreSubmission{
			ID:          uint64(len(l.submissions)),
			Identifier:  identifier,
			Submitter:   submitter,
			Mode:        modes[i],
			Score:       scores[i],
			Distance:    distances[i],
			Currency:    currencies[i],
			PlayTime:    playTimes[i],
			SubmittedAt: now,
		}
		l.submissions = append(l.submissions, sub)
		l.byPlayer[identifier] = append(l.byPlayer[identifier], sub.ID)
		ids = append(ids, sub.ID)
		accepted = append(accepted, sub)

		stats.GamesPlayed++
		stats.TotalScore += sub.Score

		if isRecord, oldBest := l.considerUpdate(stats, sub.Mode, sub.Score); isRecord {
			highScores.Inc()
			s, m, ob, nb := sub.Identifier, sub.Mode, oldBest, sub.Score
			emissions = append(emissions, func() { l.emitter.HighScore(s, m, ob, nb, now) })
		}

		s := sub
		emissions = append(emissions, func() { l.emitter.ScoreSubmitted(s) })
	}
	stats.LastPlayedAt = now

	l.mu.Unlock()

	submissionsAccepted.Add(float64(n))
	if l.journal != nil {
		if err := l.journal.AppendSubmissions(ctx, accepted); err != nil {
			journalFailures.Inc()
			l.logger.Errorw("Journal append failed", "identifier", identifier, "count", n, "error", err)
		}
	}
	for _, emit := range emissions {
		emit()
	}
	return ids, nil
}

// considerUpdate applies the strictly-greater best-score rule. Ties never
// update and never touch membership. Caller holds the write lock.
func (l *Ledger) considerUpdate(stats *models.PlayerStats, mode models.GameMode, score uint64) (bool, uint64) {
	oldBest := stats.BestScores[mode]
	if score <= oldBest {
		return false, oldBest
	}
	stats.BestScores[mode] = score
	if oldBest == 0 {
		// First nonzero score in this mode: join the membership set.
		// Insertion order here is permanent and breaks ranking ties.
		l.membership[mode] = append(l.membership[mode], stats.Identifier)
	}
	return true, oldBest
}

// Verify toggles the advisory verified flag on a submission. It never
// recomputes best scores, membership or snapshots; verification is
// metadata for downstream consumers, not an enforcement mechanism.
func (l *Ledger) Verify(ctx context.Context, token string, id uint64, verified bool) error {
	l.mu.Lock()
	if !l.authorized(token) {
		l.mu.Unlock()
		return ErrNotAuthorized
	}
	if id >= uint64(len(l.submissions)) {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.submissions[id].Verified = verified
	now := l.now()
	l.mu.Unlock()

	if l.journal != nil {
		if err := l.journal.SetVerified(ctx, id, verified); err != nil {
			journalFailures.Inc()
			l.logger.Errorw("Journal verify update failed", "submission", id, "error", err)
		}
	}
	l.emitter.ScoreVerified(id, verified, now)
	return nil
}

// UpdateAntiCheatParams replaces the admission-gate bounds. Zero values are
// rejected as misconfiguration rather than treated as "unlimited".
func (l *Ledger) UpdateAntiCheatParams(ctx context.Context, token string, p models.AntiCheatParams) error {
	l.mu.Lock()
	if !l.authorized(token) {
		l.mu.Unlock()
		return ErrNotAuthorized
	}
	if p.MinSubmissionInterval <= 0 || p.MaxScorePerSubmission == 0 {
		l.mu.Unlock()
		return ErrInvalidParams
	}
	l.params = p
	l.mu.Unlock()

	if l.journal != nil {
		if err := l.journal.SaveParams(ctx, p); err != nil {
			journalFailures.Inc()
			l.logger.Errorw("Journal params update failed", "error", err)
		}
	}
	return nil
}

// Params returns the current admission-gate bounds.
func (l *Ledger) Params() models.AntiCheatParams {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.params
}

// GetSubmission returns the submission row for a dense id.
func (l *Ledger) GetSubmission(id uint64) (models.ScoreSubmission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id >= uint64(len(l.submissions)) {
		return models.ScoreSubmission{}, ErrNotFound
	}
	return l.submissions[id], nil
}

// PlayerStats returns a copy of the aggregate record, with existence.
func (l *Ledger) PlayerStats(identifier string) (models.PlayerStats, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats, ok := l.players[identifier]
	if !ok {
		return models.PlayerStats{}, false
	}
	return *stats, true
}

// PlayerExists reports whether the identifier has any accepted submission.
func (l *Ledger) PlayerExists(identifier string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.players[identifier]
	return ok
}

// PlayerBestScore returns the running best for (identifier, mode); zero if
// the player has no accepted submission in that mode.
func (l *Ledger) PlayerBestScore(identifier string, mode models.GameMode) (uint64, error) {
	if !mode.Valid() {
		return 0, ErrInvalidGameMode
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats, ok := l.players[identifier]
	if !ok {
		return 0, nil
	}
	return stats.BestScores[mode], nil
}

// PlayerSubmissions returns the identifier's accepted submissions in ledger
// order.
func (l *Ledger) PlayerSubmissions(identifier string) []models.ScoreSubmission {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.byPlayer[identifier]
	subs := make([]models.ScoreSubmission, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, l.submissions[id])
	}
	return subs
}

// Stats summarizes ledger-wide totals.
func (l *Ledger) Stats() models.LedgerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := models.LedgerStats{
		TotalSubmissions: uint64(len(l.submissions)),
		TotalPlayers:     uint64(len(l.players)),
		TotalSnapshots:   uint64(len(l.snapshots)),
	}
	for mode := 0; mode < models.GameModeCount; mode++ {
		out.RankedPlayers[mode] = uint64(len(l.membership[mode]))
	}
	return out
}

// Restore rebuilds ledger state from journaled rows, replaying submissions
// through the same aggregate and best-score code paths with admission checks
// and notifications suppressed. Must be called before serving traffic.
func (l *Ledger) Restore(subs []models.ScoreSubmission, snaps []models.LeaderboardSnapshot, params *models.AntiCheatParams) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sub := range subs {
		sub.ID = uint64(len(l.submissions))
		l.submissions = append(l.submissions, sub)
		l.byPlayer[sub.Identifier] = append(l.byPlayer[sub.Identifier], sub.ID)

		stats, ok := l.players[sub.Identifier]
		if !ok {
			stats = &models.PlayerStats{Identifier: sub.Identifier, RegisteredAt: sub.SubmittedAt}
			l.players[sub.Identifier] = stats
		}
		stats.GamesPlayed++
		stats.TotalScore += sub.Score
		stats.LastPlayedAt = sub.SubmittedAt
		l.considerUpdate(stats, sub.Mode, sub.Score)
	}

	for _, snap := range snaps {
		snap.ID = uint64(len(l.snapshots))
		l.snapshots = append(l.snapshots, snap)
		l.byMode[snap.Mode] = append(l.byMode[snap.Mode], snap.ID)
	}

	if params != nil {
		l.params = *params
	}
}
