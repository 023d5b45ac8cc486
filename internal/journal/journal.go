// Package journal persists committed ledger mutations to Postgres and
// replays them at startup. The journal mirrors the in-memory ledger, which
// stays authoritative: rows are only ever appended (plus the advisory
// verified toggle), never rewritten.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/skyarcade/score-ledger/internal/models"
)

// PgPool is the slice of pgxpool.Pool the journal needs.
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Journal struct {
	pg     PgPool
	logger *zap.SugaredLogger
}

func New(pg PgPool, logger *zap.Logger) *Journal {
	return &Journal{pg: pg, logger: logger.Sugar()}
}

// AppendSubmissions records a batch of accepted submissions.
func (j *Journal) AppendSubmissions(ctx context.Context, subs []models.ScoreSubmission) error {
	for _, sub := range subs {
		_, err := j.pg.Exec(ctx, `
			INSERT INTO submissions (id, identifier, submitter, mode, score, distance, currency, play_time, submitted_at, verified)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, int64(sub.ID), sub.Identifier, sub.Submitter, sub.Mode.String(),
			int64(sub.Score), int64(sub.Distance), int64(sub.Currency), int64(sub.PlayTime),
			sub.SubmittedAt, sub.Verified)
		if err != nil {
			return fmt.Errorf("append submission %d: %w", sub.ID, err)
		}
	}
	return nil
}

// SetVerified updates the advisory verified flag on a journaled submission.
func (j *Journal) SetVerified(ctx context.Context, id uint64, verified bool) error {
	tag, err := j.pg.Exec(ctx, `UPDATE submissions SET verified = $2 WHERE id = $1`, int64(id), verified)
	if err != nil {
		return fmt.Errorf("set verified on submission %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submission %d not journaled", id)
	}
	return nil
}

// AppendSnapshot records an immutable leaderboard snapshot, entries as JSONB.
func (j *Journal) AppendSnapshot(ctx context.Context, snap models.LeaderboardSnapshot) error {
	entries, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("marshal snapshot %d entries: %w", snap.ID, err)
	}
	_, err = j.pg.Exec(ctx, `
		INSERT INTO snapshots (id, mode, period, start_time, end_time, created_at, entries)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, int64(snap.ID), snap.Mode.String(), snap.Period, snap.StartTime, snap.EndTime, snap.CreatedAt, entries)
	if err != nil {
		return fmt.Errorf("append snapshot %d: %w", snap.ID, err)
	}
	return nil
}

// SaveParams upserts the single anti-cheat params row.
func (j *Journal) SaveParams(ctx context.Context, p models.AntiCheatParams) error {
	_, err := j.pg.Exec(ctx, `
		INSERT INTO anticheat_params (singleton, min_submission_interval, max_score_per_submission)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (singleton)
		DO UPDATE SET min_submission_interval = EXCLUDED.min_submission_interval,
		              max_score_per_submission = EXCLUDED.max_score_per_submission
	`, p.MinSubmissionInterval, int64(p.MaxScorePerSubmission))
	if err != nil {
		return fmt.Errorf("save anticheat params: %w", err)
	}
	return nil
}

// Load reads the full journal back in id order for ledger.Restore. A missing
// params row returns nil params (ledger defaults apply).
func (j *Journal) Load(ctx context.Context) ([]models.ScoreSubmission, []models.LeaderboardSnapshot, *models.AntiCheatParams, error) {
	subs, err := j.loadSubmissions(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	snaps, err := j.loadSnapshots(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	var params models.AntiCheatParams
	err = j.pg.QueryRow(ctx, `
		SELECT min_submission_interval, max_score_per_submission FROM anticheat_params
	`).Scan(&params.MinSubmissionInterval, &params.MaxScorePerSubmission)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return subs, snaps, nil, nil
	case err != nil:
		return nil, nil, nil, fmt.Errorf("load anticheat params: %w", err)
	}
	return subs, snaps, &params, nil
}

func (j *Journal) loadSubmissions(ctx context.Context) ([]models.ScoreSubmission, error) {
	rows, err := j.pg.Query(ctx, `
		SELECT id, identifier, submitter, mode, score, distance, currency, play_time, submitted_at, verified
		FROM submissions ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.ScoreSubmission
	for rows.Next() {
		var (
			sub                                     models.ScoreSubmission
			id, score, distance, currency, playTime int64
			mode                                    string
		)
		if err := rows.Scan(&id, &sub.Identifier, &sub.Submitter, &mode,
			&score, &distance, &currency, &playTime, &sub.SubmittedAt, &sub.Verified); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		m, ok := models.ParseGameMode(mode)
		if !ok {
			j.logger.Warnw("Journaled submission has unknown mode, skipping", "id", id, "mode", mode)
			continue
		}
		sub.ID = uint64(id)
		sub.Mode = m
		sub.Score = uint64(score)
		sub.Distance = uint64(distance)
		sub.Currency = uint64(currency)
		sub.PlayTime = uint64(playTime)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (j *Journal) loadSnapshots(ctx context.Context) ([]models.LeaderboardSnapshot, error) {
	rows, err := j.pg.Query(ctx, `
		SELECT id, mode, period, start_time, end_time, created_at, entries
		FROM snapshots ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.LeaderboardSnapshot
	for rows.Next() {
		var (
			snap    models.LeaderboardSnapshot
			id      int64
			mode    string
			entries []byte
		)
		if err := rows.Scan(&id, &mode, &snap.Period, &snap.StartTime, &snap.EndTime, &snap.CreatedAt, &entries); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		m, ok := models.ParseGameMode(mode)
		if !ok {
			j.logger.Warnw("Journaled snapshot has unknown mode, skipping", "id", id, "mode", mode)
			continue
		}
		if err := json.Unmarshal(entries, &snap.Entries); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %d entries: %w", id, err)
		}
		snap.ID = uint64(id)
		snap.Mode = m
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
