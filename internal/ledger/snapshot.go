package ledger

import (
	"context"

	"github.com/skyarcade/score-ledger/internal/models"
)

// CreateSnapshot freezes the current top-N ranking of a mode into an
// immutable archival record. The period label and [start, end) window are
// caller-supplied bookkeeping; the entries capture the ranking at creation
// time and never change afterwards. No update or delete exists.
func (l *Ledger) CreateSnapshot(ctx context.Context, token string, mode models.GameMode, period string, startTime, endTime int64, topN int) (uint64, error) {
	l.mu.Lock()
	if !l.authorized(token) {
		l.mu.Unlock()
		return 0, ErrNotAuthorized
	}
	if !mode.Valid() {
		l.mu.Unlock()
		return 0, ErrInvalidGameMode
	}
	if len(l.membership[mode]) == 0 {
		l.mu.Unlock()
		return 0, ErrEmptyLeaderboard
	}

	entries := l.rankTopNLocked(mode, topN)
	snap := models.LeaderboardSnapshot{
		ID:        uint64(len(l.snapshots)),
		Mode:      mode,
		Period:    period,
		StartTime: startTime,
		EndTime:   endTime,
		CreatedAt: l.now(),
		Entries:   entries,
	}
	l.snapshots = append(l.snapshots, snap)
	l.byMode[mode] = append(l.byMode[mode], snap.ID)
	l.mu.Unlock()

	snapshotsCreated.Inc()
	if l.journal != nil {
		if err := l.journal.AppendSnapshot(ctx, snap); err != nil {
			journalFailures.Inc()
			l.logger.Errorw("Journal snapshot append failed", "snapshot", snap.ID, "error", err)
		}
	}
	l.emitter.SnapshotCreated(snap)
	return snap.ID, nil
}

// rankTopNLocked is RankTopN under an already-held lock, so the snapshot
// captures the same state it was admitted against.
func (l *Ledger) rankTopNLocked(mode models.GameMode, n int) []models.LeaderboardEntry {
	members := l.membership[mode]
	entries := make([]models.LeaderboardEntry, 0, len(members))
	for _, id := range members {
		entries = append(entries, models.LeaderboardEntry{
			Identifier: id,
			Score:      l.players[id].BestScores[mode],
		})
	}
	stableSortByScore(entries)
	if n < 0 {
		n = 0
	}
	if n < len(entries) {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Snapshot returns the archival record for an id.
func (l *Ledger) Snapshot(id uint64) (models.LeaderboardSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id >= uint64(len(l.snapshots)) {
		return models.LeaderboardSnapshot{}, ErrNotFound
	}
	return l.snapshots[id], nil
}

// SnapshotEntries returns only the frozen entry list of a snapshot.
func (l *Ledger) SnapshotEntries(id uint64) ([]models.LeaderboardEntry, error) {
	snap, err := l.Snapshot(id)
	if err != nil {
		return nil, err
	}
	return snap.Entries, nil
}

// ModeSnapshots lists the snapshot ids recorded for a mode, oldest first.
func (l *Ledger) ModeSnapshots(mode models.GameMode) ([]uint64, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]uint64, len(l.byMode[mode]))
	copy(ids, l.byMode[mode])
	return ids, nil
}
