package store_test

import (
	"testing"
	"time"

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

// tickingClock advances one second per call so every submission gets a
// distinct, ordered timestamp.
func tickingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newTestStore() *store.SubmissionStore {
	calc := scoring.NewCalculator(scoring.DefaultConfig())
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return store.NewSubmissionStore(calc).WithClock(tickingClock(start))
}

func TestBestForUserPicksHighestScore(t *testing.T) {
	s := newTestStore()

	_, err := s.Add("p1", "u1", "", "", "線形回帰", models.SubmissionMetadata{})
	require.NoError(t, err)
	best, err := s.Add("p1", "u1", "", "", "XGBoost", models.SubmissionMetadata{})
	require.NoError(t, err)
	_, err = s.Add("p1", "u1", "", "", "決定木", models.SubmissionMetadata{})
	require.NoError(t, err)

	got, ok := s.BestForUser("p1", "u1")
	require.True(t, ok)
	assert.Equal(t, best.ID, got.ID)
	assert.Equal(t, best.Score, got.Score)
}

func TestBestForUserTieGoesToEarliest(t *testing.T) {
	s := newTestStore()

	first, err := s.Add("p1", "u1", "", "", "SVM", models.SubmissionMetadata{})
	require.NoError(t, err)
	second, err := s.Add("p1", "u1", "", "", "SVM", models.SubmissionMetadata{})
	require.NoError(t, err)
	require.Equal(t, first.Score, second.Score)

	got, ok := s.BestForUser("p1", "u1")
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
}

func TestUnknownModelRecordsNothing(t *testing.T) {
	s := newTestStore()

	_, err := s.Add("p1", "u1", "", "", "深層学習", models.SubmissionMetadata{})
	assert.ErrorIs(t, err, scoring.ErrUnknownModel)
	assert.Empty(t, s.UserSubmissions("p1", "u1"))
	assert.Equal(t, 0, s.CountForUser("p1", "u1"))
}

func TestFailedSubmissionIsRecordedButNeverRanked(t *testing.T) {
	s := newTestStore()

	sub, err := s.Add("p1", "u1", "", "", "SVM", models.SubmissionMetadata{
		Hyperparameters: map[string]any{"learningRate": "fast"},
	})
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, sub.Status)
	assert.Zero(t, sub.Score)

	// Part of the audit trail and the per-user count.
	history := s.UserSubmissions("p1", "u1")
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusFailed, history[0].Status)
	assert.Equal(t, 1, s.CountForUser("p1", "u1"))

	// Invisible to ranking reads.
	assert.Empty(t, s.AllEvaluated("p1"))
	_, ok := s.BestForUser("p1", "u1")
	assert.False(t, ok)
}

func TestUserSubmissionsNewestFirst(t *testing.T) {
	s := newTestStore()

	old, err := s.Add("p1", "u1", "", "", "SVM", models.SubmissionMetadata{})
	require.NoError(t, err)
	recent, err := s.Add("p1", "u1", "", "", "決定木", models.SubmissionMetadata{})
	require.NoError(t, err)

	history := s.UserSubmissions("p1", "u1")
	require.Len(t, history, 2)
	assert.Equal(t, recent.ID, history[0].ID)
	assert.Equal(t, old.ID, history[1].ID)
}

func TestLoadDeduplicatesAndReevaluatesPending(t *testing.T) {
	s := newTestStore()

	existing, err := s.Add("p1", "u1", "", "", "SVM", models.SubmissionMetadata{})
	require.NoError(t, err)

	snapshot := []models.Submission{
		existing, // duplicate id, must be dropped
		{
			ID:          "restored-1",
			UserID:      "u2",
			ProblemID:   "p1",
			ModelName:   "XGBoost",
			Status:      models.StatusPending,
			SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{}, // missing id, must be dropped
	}

	assert.Equal(t, 1, s.Load(snapshot))

	restored, ok := s.BestForUser("p1", "u2")
	require.True(t, ok)
	assert.Equal(t, models.StatusEvaluated, restored.Status)
	assert.Greater(t, restored.Score, 0.0)

	// Loading the same snapshot again is a no-op.
	assert.Equal(t, 0, s.Load(snapshot))
}

func TestStats(t *testing.T) {
	s := newTestStore()

	_, err := s.Add("p1", "u1", "", "", "SVM", models.SubmissionMetadata{})
	require.NoError(t, err)
	_, err = s.Add("p1", "u2", "", "", "XGBoost", models.SubmissionMetadata{})
	require.NoError(t, err)
	_, err = s.Add("p1", "u2", "", "", "SVM", models.SubmissionMetadata{
		Hyperparameters: map[string]any{"epochs": "many"},
	})
	require.Error(t, err)

	stats := s.Stats("p1")
	assert.Equal(t, 3, stats.TotalSubmissions)
	assert.Equal(t, 2, stats.EvaluatedSubmissions)
	assert.Equal(t, 1, stats.FailedSubmissions)
	assert.Equal(t, 2, stats.Participants)
	assert.Greater(t, stats.AverageScore, 0.0)

	// Unknown problems report empty stats, not an error.
	assert.Equal(t, models.SubmissionStats{}, s.Stats("nope"))
}
