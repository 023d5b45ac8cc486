package ledger

import (
	"sort"

	"github.com/skyarcade/score-ledger/internal/models"
)

// RankTopN computes the ordered leaderboard view for a mode: stable sort of
// the membership set by score descending, strict ordinal ranks 1..k,
// truncated to min(n, membership size). Equal scores keep their relative
// membership-insertion order; that tie-break is contract, not an accident of
// the sort. The view is recomputed from scratch on every call.
func (l *Ledger) RankTopN(mode models.GameMode, n int) ([]models.LeaderboardEntry, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rankTopNLocked(mode, n), nil
}

// stableSortByScore orders entries by score descending while preserving the
// relative order of equal scores.
func stableSortByScore(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}

// PlayerRank reports the shared-position rank: 1 + count of members with a
// strictly greater best score, so tied players share a position. A zero best
// score reports position 0. This deliberately differs from the strict
// ordinal ranks of RankTopN for players sharing the top score; both
// behaviors are part of the contract.
func (l *Ledger) PlayerRank(identifier string, mode models.GameMode) (position, totalPlayers int, err error) {
	if !mode.Valid() {
		return 0, 0, ErrInvalidGameMode
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	totalPlayers = len(l.membership[mode])

	var best uint64
	if stats, ok := l.players[identifier]; ok {
		best = stats.BestScores[mode]
	}
	if best == 0 {
		return 0, totalPlayers, nil
	}

	position = 1
	for _, id := range l.membership[mode] {
		if l.players[id].BestScores[mode] > best {
			position++
		}
	}
	return position, totalPlayers, nil
}
