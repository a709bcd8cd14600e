package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"mlbattle/internal/logger"
	"mlbattle/internal/models"
	"mlbattle/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionStore is the single source of truth for submission history. It is
// an append-only in-memory log keyed by problem, mutated only through Add and
// Load. Reads iterate over a snapshot taken under the lock, so concurrent
// appends are safe.
type SubmissionStore struct {
	mu         sync.RWMutex
	byProblem  map[string][]models.Submission
	calculator *scoring.Calculator
	clock      func() time.Time
}

func NewSubmissionStore(calculator *scoring.Calculator) *SubmissionStore {
	return &SubmissionStore{
		byProblem:  make(map[string][]models.Submission),
		calculator: calculator,
		clock:      time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *SubmissionStore) WithClock(clock func() time.Time) *SubmissionStore {
	s.clock = clock
	return s
}

// Add scores and records a new submission. An unknown model name is a
// validation error: nothing is recorded. A computation error still appends
// the submission with failed status and zero scores so the audit trail is
// preserved, and the error is reported to the caller.
func (s *SubmissionStore) Add(problemID, userID, teamID, teamName, modelName string, meta models.SubmissionMetadata) (models.Submission, error) {
	if !s.calculator.KnowsModel(modelName) {
		return models.Submission{}, fmt.Errorf("%w: %q", scoring.ErrUnknownModel, modelName)
	}

	sub := models.Submission{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProblemID:   problemID,
		TeamID:      teamID,
		TeamName:    teamName,
		ModelName:   modelName,
		SubmittedAt: s.clock(),
		Metadata:    meta,
	}

	// The pending -> evaluated|failed transition happens here, before the
	// record is published; stored submissions are never mutated afterwards.
	evalErr := s.evaluate(&sub)

	s.mu.Lock()
	s.byProblem[problemID] = append(s.byProblem[problemID], sub)
	s.mu.Unlock()

	if evalErr != nil {
		logger.Log.Warn("Submission evaluation failed",
			zap.String("submission_id", sub.ID),
			zap.String("user_id", userID),
			zap.Error(evalErr))
		return sub, fmt.Errorf("evaluation failed: %w", evalErr)
	}

	return sub, nil
}

func (s *SubmissionStore) evaluate(sub *models.Submission) error {
	publicScore, err := s.calculator.PublicScore(sub.ModelName, sub.Metadata)
	if err != nil {
		sub.Status = models.StatusFailed
		return err
	}

	privateScore, err := s.calculator.PrivateScore(sub.ModelName, sub.Metadata, publicScore)
	if err != nil {
		sub.Status = models.StatusFailed
		return err
	}

	sub.PublicScore = publicScore
	sub.PrivateScore = privateScore
	// The private score is held back until the evaluation phase closes.
	sub.Score = publicScore
	sub.Status = models.StatusEvaluated
	return nil
}

// Load rehydrates the store from a prior snapshot. Records are replayed
// through the same evaluation path, duplicates (by id) are dropped, and no
// notifications fire: callers decide what to do with the returned count.
func (s *SubmissionStore) Load(subs []models.Submission) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	for _, existing := range s.byProblem {
		for _, sub := range existing {
			seen[sub.ID] = true
		}
	}

	loaded := 0
	for _, sub := range subs {
		if sub.ID == "" || seen[sub.ID] {
			continue
		}
		seen[sub.ID] = true

		if sub.Status == "" || sub.Status == models.StatusPending {
			if err := s.evaluate(&sub); err != nil {
				logger.Log.Warn("Rehydrated submission failed evaluation",
					zap.String("submission_id", sub.ID),
					zap.Error(err))
			}
		}

		s.byProblem[sub.ProblemID] = append(s.byProblem[sub.ProblemID], sub)
		loaded++
	}

	return loaded
}

// BestForUser returns the evaluated submission with the highest score for the
// user in the problem; ties go to the earliest submission. Returns false when
// the user has no evaluated submissions.
func (s *SubmissionStore) BestForUser(problemID, userID string) (models.Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best models.Submission
	found := false
	for _, sub := range s.byProblem[problemID] {
		if sub.UserID != userID || sub.Status != models.StatusEvaluated {
			continue
		}
		if !found || betterThan(sub, best) {
			best = sub
			found = true
		}
	}
	return best, found
}

// AllEvaluated returns a snapshot of every evaluated submission for the
// problem, in submission order.
func (s *SubmissionStore) AllEvaluated(problemID string) []models.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Submission
	for _, sub := range s.byProblem[problemID] {
		if sub.Status == models.StatusEvaluated {
			out = append(out, sub)
		}
	}
	return out
}

// UserSubmissions returns the user's full history for the problem, newest
// first. Failed submissions are included: they are part of the audit trail.
func (s *SubmissionStore) UserSubmissions(problemID, userID string) []models.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Submission
	for _, sub := range s.byProblem[problemID] {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// CountForUser counts all recorded submissions (any status) by the user.
func (s *SubmissionStore) CountForUser(problemID, userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.byProblem[problemID] {
		if sub.UserID == userID {
			count++
		}
	}
	return count
}

// Stats summarizes the problem's submission history.
func (s *SubmissionStore) Stats(problemID string) models.SubmissionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.SubmissionStats{}
	participants := make(map[string]bool)
	sum := 0.0

	for _, sub := range s.byProblem[problemID] {
		stats.TotalSubmissions++
		switch sub.Status {
		case models.StatusEvaluated:
			stats.EvaluatedSubmissions++
			participants[sub.UserID] = true
			sum += sub.Score
		case models.StatusFailed:
			stats.FailedSubmissions++
		}
	}

	if stats.EvaluatedSubmissions > 0 {
		stats.AverageScore = sum / float64(stats.EvaluatedSubmissions)
	}
	stats.Participants = len(participants)
	return stats
}

// betterThan orders by score descending, then earliest submission.
func betterThan(a, b models.Submission) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}
