package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/skyarcade/score-ledger/internal/models"
)

const testToken = "test-admin-token"

type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() int64      { return c.now }
func (c *fakeClock) Advance(s int64) { c.now += s }

// recordingEmitter captures notifications for assertions.
type recordingEmitter struct {
	registered []string
	submitted  []models.ScoreSubmission
	highScores []struct {
		identifier       string
		mode             models.GameMode
		oldBest, newBest uint64
	}
	verified  []uint64
	snapshots []uint64
}

func (r *recordingEmitter) PlayerRegistered(id string, ts int64) {
	r.registered = append(r.registered, id)
}

func (r *recordingEmitter) ScoreSubmitted(sub models.ScoreSubmission) {
	r.submitted = append(r.submitted, sub)
}

func (r *recordingEmitter) HighScore(id string, mode models.GameMode, oldBest, newBest uint64, ts int64) {
	r.highScores = append(r.highScores, struct {
		identifier       string
		mode             models.GameMode
		oldBest, newBest uint64
	}{id, mode, oldBest, newBest})
}

func (r *recordingEmitter) ScoreVerified(id uint64, verified bool, ts int64) {
	r.verified = append(r.verified, id)
}

func (r *recordingEmitter) SnapshotCreated(snap models.LeaderboardSnapshot) {
	r.snapshots = append(r.snapshots, snap.ID)
}

func newTestLedger() (*Ledger, *fakeClock, *recordingEmitter) {
	clock := &fakeClock{now: 1_000_000}
	emitter := &recordingEmitter{}
	l := New(Config{
		AdminToken: testToken,
		Emitter:    emitter,
		Now:        clock.Now,
	})
	return l, clock, emitter
}

func submit(t *testing.T, l *Ledger, clock *fakeClock, id string, mode models.GameMode, score uint64) uint64 {
	t.Helper()
	clock.Advance(DefaultMinSubmissionInterval)
	subID, err := l.Submit(context.Background(), testToken, id, "", Play{Mode: mode, Score: score})
	if err != nil {
		t.Fatalf("Submit(%s, %v, %d) failed: %v", id, mode, score, err)
	}
	return subID
}

func TestSubmitAdmissionChecks(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(l *Ledger, clock *fakeClock)
		token   string
		mode    models.GameMode
		score   uint64
		wantErr error
	}{
		{
			name:    "Rejects Missing Capability",
			token:   "not-the-admin",
			mode:    models.ModeOneWay,
			score:   100,
			wantErr: ErrNotAuthorized,
		},
		{
			name:    "Rejects Invalid Mode",
			token:   testToken,
			mode:    models.GameMode(7),
			score:   100,
			wantErr: ErrInvalidGameMode,
		},
		{
			name:    "Rejects Score Above Maximum",
			token:   testToken,
			mode:    models.ModeOneWay,
			score:   DefaultMaxScorePerSubmission + 1,
			wantErr: ErrScoreTooHigh,
		},
		{
			name:  "Accepts Score At Maximum",
			token: testToken,
			mode:  models.ModeOneWay,
			score: DefaultMaxScorePerSubmission,
		},
		{
			name: "Rejects Submission Within Interval",
			setup: func(l *Ledger, clock *fakeClock) {
				submit(t, l, clock, "p1", models.ModeOneWay, 50)
				clock.Advance(DefaultMinSubmissionInterval - 1)
			},
			token:   testToken,
			mode:    models.ModeOneWay,
			score:   100,
			wantErr: ErrSubmissionTooFrequent,
		},
		{
			name: "Accepts Submission At Interval Boundary",
			setup: func(l *Ledger, clock *fakeClock) {
				submit(t, l, clock, "p1", models.ModeOneWay, 50)
				clock.Advance(DefaultMinSubmissionInterval)
			},
			token: testToken,
			mode:  models.ModeOneWay,
			score: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, clock, _ := newTestLedger()
			if tt.setup != nil {
				tt.setup(l, clock)
			}
			before := l.Stats().TotalSubmissions

			_, err := l.Submit(context.Background(), tt.token, "p1", "", Play{Mode: tt.mode, Score: tt.score})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit error = %v, want %v", err, tt.wantErr)
			}

			after := l.Stats().TotalSubmissions
			if tt.wantErr != nil && after != before {
				t.Errorf("rejected submission changed totalSubmissions: %d -> %d", before, after)
			}
			if tt.wantErr == nil && after != before+1 {
				t.Errorf("accepted submission: totalSubmissions = %d, want %d", after, before+1)
			}
		})
	}
}

func TestSubmitAssignsDenseIDs(t *testing.T) {
	l, clock, _ := newTestLedger()

	for want := uint64(0); want < 5; want++ {
		got := submit(t, l, clock, "p1", models.ModeOneWay, 10+want)
		if got != want {
			t.Fatalf("submission id = %d, want %d", got, want)
		}
	}
	if got := l.Stats().TotalSubmissions; got != 5 {
		t.Errorf("TotalSubmissions = %d, want 5", got)
	}
}

func TestIdempotentRegistration(t *testing.T) {
	l, clock, emitter := newTestLedger()

	if l.PlayerExists("p1") {
		t.Fatal("PlayerExists true before any submission")
	}

	submit(t, l, clock, "p1", models.ModeOneWay, 100)
	if !l.PlayerExists("p1") {
		t.Fatal("PlayerExists false after first submission")
	}

	submit(t, l, clock, "p1", models.ModeTwoWay, 50)
	submit(t, l, clock, "p1", models.ModeOneWay, 70)

	if got := len(emitter.registered); got != 1 {
		t.Errorf("player_registered emitted %d times, want exactly 1", got)
	}
	if got := l.Stats().TotalPlayers; got != 1 {
		t.Errorf("TotalPlayers = %d, want 1", got)
	}
}

func TestBestScoreMonotonicity(t *testing.T) {
	l, clock, emitter := newTestLedger()

	scores := []uint64{100, 50, 100, 150, 120}
	var max uint64
	for _, s := range scores {
		submit(t, l, clock, "p1", models.ModeTimeAttack, s)
		if s > max {
			max = s
		}
		best, err := l.PlayerBestScore("p1", models.ModeTimeAttack)
		if err != nil {
			t.Fatal(err)
		}
		if best != max {
			t.Fatalf("best = %d after submitting %d, want %d", best, s, max)
		}
	}

	// 100 (record), 150 (record); the tie at 100 and the lower 50/120 are not.
	if got := len(emitter.highScores); got != 2 {
		t.Fatalf("high_score emitted %d times, want 2", got)
	}
	if hs := emitter.highScores[1]; hs.oldBest != 100 || hs.newBest != 150 {
		t.Errorf("high_score old/new = %d/%d, want 100/150", hs.oldBest, hs.newBest)
	}
}

func TestPlayerAggregates(t *testing.T) {
	l, clock, _ := newTestLedger()

	submit(t, l, clock, "p1", models.ModeOneWay, 100)
	submit(t, l, clock, "p1", models.ModeBomb, 40)

	stats, ok := l.PlayerStats("p1")
	if !ok {
		t.Fatal("PlayerStats missing after submissions")
	}
	if stats.GamesPlayed != 2 {
		t.Errorf("GamesPlayed = %d, want 2", stats.GamesPlayed)
	}
	if stats.TotalScore != 140 {
		t.Errorf("TotalScore = %d, want 140", stats.TotalScore)
	}
	if stats.LastPlayedAt != clock.Now() {
		t.Errorf("LastPlayedAt = %d, want %d", stats.LastPlayedAt, clock.Now())
	}
	if stats.BestScores[models.ModeOneWay] != 100 || stats.BestScores[models.ModeBomb] != 40 {
		t.Errorf("BestScores = %v", stats.BestScores)
	}
}

func TestBatchSubmit(t *testing.T) {
	modes := func(ms ...models.GameMode) []models.GameMode { return ms }
	u64 := func(vs ...uint64) []uint64 { return vs }

	t.Run("Array Length Mismatch", func(t *testing.T) {
		l, _, _ := newTestLedger()
		_, err := l.BatchSubmit(context.Background(), testToken, "p1", "",
			modes(models.ModeOneWay, models.ModeTwoWay), u64(10), u64(1, 2), u64(0, 0), u64(5, 5))
		if !errors.Is(err, ErrArrayLengthMismatch) {
			t.Fatalf("error = %v, want ErrArrayLengthMismatch", err)
		}
		if l.Stats().TotalSubmissions != 0 {
			t.Error("mismatched batch recorded submissions")
		}
	})

	t.Run("Atomic Reject On Bad Item", func(t *testing.T) {
		l, _, _ := newTestLedger()
		_, err := l.BatchSubmit(context.Background(), testToken, "p1", "",
			modes(models.ModeOneWay, models.ModeTwoWay),
			u64(10, DefaultMaxScorePerSubmission+1), u64(0, 0), u64(0, 0), u64(0, 0))
		if !errors.Is(err, ErrScoreTooHigh) {
			t.Fatalf("error = %v, want ErrScoreTooHigh", err)
		}
		if l.Stats().TotalSubmissions != 0 {
			t.Error("failing batch left partial submissions")
		}
		if l.PlayerExists("p1") {
			t.Error("failing batch registered the player")
		}
	})

	t.Run("Single Interval Check Covers Whole Batch", func(t *testing.T) {
		l, clock, _ := newTestLedger()
		submit(t, l, clock, "p1", models.ModeOneWay, 10)

		// Within the interval the whole batch is rejected.
		clock.Advance(DefaultMinSubmissionInterval - 1)
		_, err := l.BatchSubmit(context.Background(), testToken, "p1", "",
			modes(models.ModeOneWay, models.ModeOneWay), u64(20, 30), u64(0, 0), u64(0, 0), u64(0, 0))
		if !errors.Is(err, ErrSubmissionTooFrequent) {
			t.Fatalf("error = %v, want ErrSubmissionTooFrequent", err)
		}

		// Past the interval, items inside the batch are not rate-limited
		// against each other and share one timestamp.
		clock.Advance(1)
		ids, err := l.BatchSubmit(context.Background(), testToken, "p1", "",
			modes(models.ModeOneWay, models.ModeOneWay, models.ModeBomb),
			u64(20, 30, 5), u64(0, 0, 0), u64(0, 0, 0), u64(0, 0, 0))
		if err != nil {
			t.Fatalf("BatchSubmit failed: %v", err)
		}
		if len(ids) != 3 {
			t.Fatalf("got %d ids, want 3", len(ids))
		}
		first, _ := l.GetSubmission(ids[0])
		last, _ := l.GetSubmission(ids[2])
		if first.SubmittedAt != last.SubmittedAt {
			t.Errorf("batch items have different timestamps: %d vs %d", first.SubmittedAt, last.SubmittedAt)
		}
	})
}

func TestVerifyIsAdvisory(t *testing.T) {
	l, clock, emitter := newTestLedger()
	id := submit(t, l, clock, "p1", models.ModeOneWay, 100)

	if err := l.Verify(context.Background(), "wrong", id, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Verify with bad token: error = %v, want ErrNotAuthorized", err)
	}
	if err := l.Verify(context.Background(), testToken, 99, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Verify out of range: error = %v, want ErrNotFound", err)
	}

	if err := l.Verify(context.Background(), testToken, id, true); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	sub, _ := l.GetSubmission(id)
	if !sub.Verified {
		t.Error("Verified flag not set")
	}
	if len(emitter.verified) != 1 {
		t.Errorf("score_verified emitted %d times, want 1", len(emitter.verified))
	}

	// Verification never removes the submission's ranking contribution.
	if err := l.Verify(context.Background(), testToken, id, false); err != nil {
		t.Fatal(err)
	}
	best, _ := l.PlayerBestScore("p1", models.ModeOneWay)
	if best != 100 {
		t.Errorf("best score changed after un-verify: %d", best)
	}
	if entries, _ := l.RankTopN(models.ModeOneWay, 10); len(entries) != 1 {
		t.Errorf("membership changed after un-verify: %d entries", len(entries))
	}
}

func TestUpdateAntiCheatParams(t *testing.T) {
	l, clock, _ := newTestLedger()

	if err := l.UpdateAntiCheatParams(context.Background(), "wrong", models.AntiCheatParams{
		MinSubmissionInterval: 10, MaxScorePerSubmission: 100,
	}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("error = %v, want ErrNotAuthorized", err)
	}

	if err := l.UpdateAntiCheatParams(context.Background(), testToken, models.AntiCheatParams{
		MinSubmissionInterval: 0, MaxScorePerSubmission: 100,
	}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("error = %v, want ErrInvalidParams", err)
	}

	if err := l.UpdateAntiCheatParams(context.Background(), testToken, models.AntiCheatParams{
		MinSubmissionInterval: 10, MaxScorePerSubmission: 500,
	}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(DefaultMinSubmissionInterval)
	if _, err := l.Submit(context.Background(), testToken, "p1", "", Play{Mode: models.ModeOneWay, Score: 501}); !errors.Is(err, ErrScoreTooHigh) {
		t.Errorf("new max not enforced: error = %v", err)
	}
	if _, err := l.Submit(context.Background(), testToken, "p1", "", Play{Mode: models.ModeOneWay, Score: 500}); err != nil {
		t.Errorf("score at new max rejected: %v", err)
	}

	// New shorter interval applies.
	clock.Advance(10)
	if _, err := l.Submit(context.Background(), testToken, "p1", "", Play{Mode: models.ModeOneWay, Score: 10}); err != nil {
		t.Errorf("submission after shortened interval rejected: %v", err)
	}
}

func TestGetSubmissionNotFound(t *testing.T) {
	l, clock, _ := newTestLedger()
	if _, err := l.GetSubmission(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	submit(t, l, clock, "p1", models.ModeOneWay, 1)
	if _, err := l.GetSubmission(0); err != nil {
		t.Fatalf("GetSubmission(0) after one submission: %v", err)
	}
	if _, err := l.GetSubmission(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestPlayerSubmissionsOrder(t *testing.T) {
	l, clock, _ := newTestLedger()
	submit(t, l, clock, "p1", models.ModeOneWay, 10)
	submit(t, l, clock, "p2", models.ModeOneWay, 20)
	submit(t, l, clock, "p1", models.ModeBomb, 30)

	subs := l.PlayerSubmissions("p1")
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
	if subs[0].ID != 0 || subs[1].ID != 2 {
		t.Errorf("submission ids = %d,%d, want 0,2", subs[0].ID, subs[1].ID)
	}
	if got := l.PlayerSubmissions("ghost"); len(got) != 0 {
		t.Errorf("unknown player has %d submissions", len(got))
	}
}

func TestIdentifiersAreCaseSensitive(t *testing.T) {
	l, clock, _ := newTestLedger()
	submit(t, l, clock, "Player", models.ModeOneWay, 10)
	submit(t, l, clock, "player", models.ModeOneWay, 20)

	if got := l.Stats().TotalPlayers; got != 2 {
		t.Errorf("TotalPlayers = %d, want 2 (no identifier normalization)", got)
	}
}

func TestRestoreRebuildsState(t *testing.T) {
	l, clock, _ := newTestLedger()
	submit(t, l, clock, "p1", models.ModeOneWay, 100)
	submit(t, l, clock, "p2", models.ModeOneWay, 150)
	submit(t, l, clock, "p1", models.ModeOneWay, 120)
	snapID, err := l.CreateSnapshot(context.Background(), testToken, models.ModeOneWay, "daily", 0, 86400, 10)
	if err != nil {
		t.Fatal(err)
	}

	var subs []models.ScoreSubmission
	for i := uint64(0); i < l.Stats().TotalSubmissions; i++ {
		sub, _ := l.GetSubmission(i)
		subs = append(subs, sub)
	}
	snap, _ := l.Snapshot(snapID)
	params := l.Params()

	restored, _, emitter := newTestLedger()
	restored.Restore(subs, []models.LeaderboardSnapshot{snap}, &params)

	if got, want := restored.Stats(), l.Stats(); got != want {
		t.Errorf("restored stats = %+v, want %+v", got, want)
	}
	want, _ := l.RankTopN(models.ModeOneWay, 10)
	got, _ := restored.RankTopN(models.ModeOneWay, 10)
	if len(got) != len(want) {
		t.Fatalf("restored leaderboard size = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("restored entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(emitter.registered)+len(emitter.submitted)+len(emitter.highScores) != 0 {
		t.Error("Restore emitted notifications")
	}
}
