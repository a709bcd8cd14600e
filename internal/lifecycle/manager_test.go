package lifecycle_test

import (
	"testing"
	"time"

	"mlbattle/internal/events"
	"mlbattle/internal/leaderboard"
	"mlbattle/internal/lifecycle"
	"mlbattle/internal/logger"
	"mlbattle/internal/models"
	"mlbattle/internal/scoring"
	"mlbattle/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger()
	m.Run()
}

type recordingSink struct {
	subs     []models.Submission
	problems []models.Problem
}

func (r *recordingSink) SubmissionAccepted(sub models.Submission) {
	r.subs = append(r.subs, sub)
}

func (r *recordingSink) ProblemChanged(p models.Problem) {
	r.problems = append(r.problems, p)
}

type fixture struct {
	now     time.Time
	store   *store.SubmissionStore
	hub     *events.Hub
	sink    *recordingSink
	manager *lifecycle.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		hub:  events.NewHub(),
		sink: &recordingSink{},
	}
	clock := func() time.Time { return f.now }

	calc := scoring.NewCalculator(scoring.DefaultConfig())
	f.store = store.NewSubmissionStore(calc).WithClock(clock)
	agg := leaderboard.NewAggregator(f.store)
	f.manager = lifecycle.NewManager(f.store, agg, f.hub, f.sink).WithClock(clock)
	return f
}

// advance moves the shared clock so submissions get distinct timestamps.
func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) startProblem() models.Problem {
	return f.manager.StartProblem(models.Problem{
		ID:             "p1",
		Title:          "売上予測",
		Type:           models.ProblemRegression,
		Difficulty:     "medium",
		StartDate:      f.now,
		EndDate:        f.now.Add(7 * 24 * time.Hour),
		EvaluationDate: f.now.Add(8 * 24 * time.Hour),
		Status:         models.ProblemActive,
	})
}

func submissionFor(model string) models.SubmissionRequest {
	return models.SubmissionRequest{
		ProblemID: "p1",
		ModelName: model,
		Metadata: models.SubmissionMetadata{
			Hyperparameters: map[string]any{
				"learningRate":   0.01,
				"regularization": 0.05,
			},
			Preprocessing: []string{"scaling"},
		},
	}
}

func TestSubmitOnActiveProblem(t *testing.T) {
	f := newFixture(t)
	f.startProblem()

	var accepted []models.Submission
	f.hub.Subscribe(events.SubmissionAccepted, func(payload any) {
		accepted = append(accepted, payload.(models.Submission))
	})
	var updated []string
	f.hub.Subscribe(events.LeaderboardUpdated, func(payload any) {
		updated = append(updated, payload.(string))
	})

	sub, err := f.manager.Submit("u1", submissionFor("ロジスティック回帰"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusEvaluated, sub.Status)
	assert.Greater(t, sub.Score, 0.0)

	require.Len(t, accepted, 1)
	assert.Equal(t, sub.ID, accepted[0].ID)
	assert.Equal(t, []string{"p1"}, updated)
	require.Len(t, f.sink.subs, 1)
	assert.Equal(t, sub.ID, f.sink.subs[0].ID)
}

func TestSubmitUnknownProblem(t *testing.T) {
	f := newFixture(t)
	f.startProblem()

	req := submissionFor("SVM")
	req.ProblemID = "nope"

	_, err := f.manager.Submit("u1", req)
	assert.ErrorIs(t, err, lifecycle.ErrProblemNotFound)
	assert.Empty(t, f.sink.subs)
}

func TestSubmitUnknownModelRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.startProblem()

	_, err := f.manager.Submit("u1", submissionFor("深層学習"))
	assert.ErrorIs(t, err, scoring.ErrUnknownModel)
	assert.Empty(t, f.sink.subs)
	assert.Equal(t, 0, f.store.CountForUser("p1", "u1"))
}

func TestSubmissionLimit(t *testing.T) {
	f := newFixture(t)
	f.manager.WithSubmissionLimit(2)
	f.startProblem()

	for i := 0; i < 2; i++ {
		_, err := f.manager.Submit("u1", submissionFor("SVM"))
		require.NoError(t, err)
		f.advance(time.Second)
	}

	_, err := f.manager.Submit("u1", submissionFor("SVM"))
	assert.ErrorIs(t, err, lifecycle.ErrSubmissionLimit)

	// Other users are unaffected.
	_, err = f.manager.Submit("u2", submissionFor("SVM"))
	assert.NoError(t, err)
}

func TestFailedSubmissionReachesSink(t *testing.T) {
	f := newFixture(t)
	f.startProblem()

	req := submissionFor("SVM")
	req.Metadata.Hyperparameters = map[string]any{"learningRate": "fast"}

	sub, err := f.manager.Submit("u1", req)
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, sub.Status)

	require.Len(t, f.sink.subs, 1)
	assert.Equal(t, models.StatusFailed, f.sink.subs[0].Status)
}

func TestPollCompletesProblemExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.startProblem()

	completions := 0
	f.hub.Subscribe(events.ProblemCompleted, func(any) { completions++ })

	_, err := f.manager.Submit("u1", submissionFor("SVM"))
	require.NoError(t, err)

	// Before the evaluation date nothing happens.
	f.advance(24 * time.Hour)
	f.manager.Poll()
	p, _ := f.manager.Get("p1")
	assert.Equal(t, models.ProblemActive, p.Status)
	assert.Zero(t, completions)

	f.advance(8 * 24 * time.Hour)
	f.manager.Poll()

	p, _ = f.manager.Get("p1")
	require.Equal(t, models.ProblemCompleted, p.Status)
	require.NotNil(t, p.FinalResults)
	assert.True(t, p.FinalResults.EvaluationComplete)
	assert.Equal(t, 1, completions)
	frozen := *p.FinalResults

	// Late polls are no-ops and the results stay frozen.
	for i := 0; i < 3; i++ {
		f.advance(time.Hour)
		f.manager.Poll()
	}
	p, _ = f.manager.Get("p1")
	assert.Equal(t, 1, completions)
	assert.Equal(t, frozen, *p.FinalResults)
}

func TestFinalRanksUsePrivateScores(t *testing.T) {
	f := newFixture(t)
	f.startProblem()

	// A complex, heavily engineered model tops the public board but
	// overfits; a simple regularized model holds up on the private split.
	overfit := models.SubmissionRequest{
		ProblemID: "p1",
		ModelName: "ニューラルネットワーク",
		Metadata: models.SubmissionMetadata{
			Hyperparameters: map[string]any{"learningRate": 0.01},
			FeatureEngineering: []string{
				"polynomial_features", "interaction_terms", "log_transform",
				"aggregation", "target_encoding", "feature_selection",
			},
		},
	}

	_, err := f.manager.Submit("userA", overfit)
	require.NoError(t, err)
	f.advance(time.Second)
	_, err = f.manager.Submit("userB", submissionFor("ロジスティック回帰"))
	require.NoError(t, err)

	f.advance(9 * 24 * time.Hour)
	f.manager.Poll()

	p, _ := f.manager.Get("p1")
	require.NotNil(t, p.FinalResults)
	final := p.FinalResults.Submissions
	require.Len(t, final, 2)

	assert.Equal(t, "userB", final[0].UserID)
	assert.Equal(t, 1, final[0].Rank)
	assert.Equal(t, "userA", final[1].UserID)
	assert.Equal(t, 2, final[1].Rank)

	for _, e := range final {
		assert.Equal(t, e.PrivateScore, e.Score)
	}
	// The overfit model scored higher publicly.
	assert.Greater(t, final[1].PublicScore, final[0].PublicScore)
}

func TestCompletedProblemRejectsSubmissions(t *testing.T) {
	f := newFixture(t)
	f.startProblem()

	f.advance(9 * 24 * time.Hour)
	f.manager.Poll()

	_, err := f.manager.Submit("u1", submissionFor("SVM"))
	assert.ErrorIs(t, err, lifecycle.ErrProblemClosed)
	assert.Equal(t, 0, f.store.CountForUser("p1", "u1"))
	assert.Empty(t, f.sink.subs)
}

func TestEvaluatingProblemRecordsForAuditOnly(t *testing.T) {
	f := newFixture(t)

	// A restart can come back up with a problem mid-evaluation.
	f.manager.Restore([]models.Problem{{
		ID:             "p1",
		Title:          "売上予測",
		Type:           models.ProblemRegression,
		StartDate:      f.now.Add(-8 * 24 * time.Hour),
		EndDate:        f.now.Add(-24 * time.Hour),
		EvaluationDate: f.now,
		Status:         models.ProblemEvaluating,
	}})

	sub, err := f.manager.Submit("u1", submissionFor("SVM"))
	assert.ErrorIs(t, err, lifecycle.ErrWindowClosed)
	assert.Equal(t, models.StatusEvaluated, sub.Status)
	assert.Equal(t, 1, f.store.CountForUser("p1", "u1"))

	// The next poll finishes the interrupted transition.
	f.manager.Poll()
	p, _ := f.manager.Get("p1")
	assert.Equal(t, models.ProblemCompleted, p.Status)
}

func TestRestoreSetsCurrentSilently(t *testing.T) {
	f := newFixture(t)

	f.manager.Restore([]models.Problem{
		{ID: "old", Status: models.ProblemCompleted},
		{ID: "live", Status: models.ProblemActive, EvaluationDate: f.now.Add(24 * time.Hour)},
	})

	current, ok := f.manager.Current()
	require.True(t, ok)
	assert.Equal(t, "live", current.ID)
	assert.Len(t, f.manager.History(), 2)
	assert.Empty(t, f.sink.problems)
}

func TestAutoRotateStartsNextProblemOnCompletion(t *testing.T) {
	f := newFixture(t)
	f.manager.WithAutoRotate(7 * 24 * time.Hour)
	first := f.startProblem()

	f.advance(9 * 24 * time.Hour)
	f.manager.Poll()

	current, ok := f.manager.Current()
	require.True(t, ok)
	assert.NotEqual(t, first.ID, current.ID)
	assert.Equal(t, models.ProblemActive, current.Status)

	// The finished problem stays in history with its frozen results.
	old, ok := f.manager.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, models.ProblemCompleted, old.Status)
	assert.Len(t, f.manager.History(), 2)
}

func TestRotateStartsFreshProblem(t *testing.T) {
	f := newFixture(t)

	p := f.manager.Rotate(7 * 24 * time.Hour)
	assert.Equal(t, models.ProblemActive, p.Status)
	assert.Equal(t, f.now, p.StartDate)
	assert.Equal(t, f.now.Add(7*24*time.Hour), p.EndDate)
	assert.Equal(t, f.now.Add(8*24*time.Hour), p.EvaluationDate)
	assert.NotEmpty(t, p.Title)

	current, ok := f.manager.Current()
	require.True(t, ok)
	assert.Equal(t, p.ID, current.ID)
	require.Len(t, f.sink.problems, 1)
}
