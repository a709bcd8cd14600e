package lifecycle

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"mlbattle/internal/events"
	"mlbattle/internal/leaderboard"
	"mlbattle/internal/logger"
	"mlbattle/internal/models"
	"mlbattle/internal/store"

	"go.uber.org/zap"
)

// Sink receives every accepted submission and lifecycle transition so the
// host can durably persist them. Delivery is at-least-once; consumers must
// upsert by submission id.
type Sink interface {
	SubmissionAccepted(sub models.Submission)
	ProblemChanged(problem models.Problem)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) SubmissionAccepted(models.Submission) {}
func (NopSink) ProblemChanged(models.Problem)        {}

// Manager owns problem instances and drives the active -> evaluating ->
// completed state machine. All transitions are guarded by the current status
// under the manager lock, so a poll firing many times after the deadline
// still completes a problem exactly once.
type Manager struct {
	mu           sync.Mutex
	problems     map[string]*models.Problem
	order        []string
	currentID    string
	store        *store.SubmissionStore
	aggregator   *leaderboard.Aggregator
	hub          *events.Hub
	sink         Sink
	clock        func() time.Time
	maxPerUser   int
	rotateWindow time.Duration

	quit chan struct{}
	once sync.Once
}

func NewManager(s *store.SubmissionStore, agg *leaderboard.Aggregator, hub *events.Hub, sink Sink) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		problems:   make(map[string]*models.Problem),
		store:      s,
		aggregator: agg,
		hub:        hub,
		sink:       sink,
		clock:      time.Now,
		quit:       make(chan struct{}),
	}
}

// WithClock replaces the wall clock, for tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// WithSubmissionLimit caps recorded submissions per user per problem.
// Zero means unlimited.
func (m *Manager) WithSubmissionLimit(limit int) *Manager {
	m.maxPerUser = limit
	return m
}

// WithAutoRotate makes Poll start a fresh problem with the given window
// whenever the current one completes.
func (m *Manager) WithAutoRotate(window time.Duration) *Manager {
	m.rotateWindow = window
	return m
}

// StartProblem registers a problem instance and makes it the current one.
// The previous current problem stays queryable in history.
func (m *Manager) StartProblem(p models.Problem) models.Problem {
	m.mu.Lock()
	m.problems[p.ID] = &p
	m.order = append(m.order, p.ID)
	m.currentID = p.ID
	m.mu.Unlock()

	logger.Log.Info("Problem started",
		zap.String("problem_id", p.ID),
		zap.String("title", p.Title),
		zap.Time("end_date", p.EndDate))

	m.hub.Publish(events.ProblemUpdated, p)
	m.sink.ProblemChanged(p)
	return p
}

// Rotate generates a fresh problem from the template catalog and makes it
// the active one.
func (m *Manager) Rotate(window time.Duration) models.Problem {
	return m.StartProblem(GenerateProblem(m.clock(), window))
}

// Restore re-registers problems from a durable snapshot without firing any
// notifications. The last non-completed problem becomes the current one; the
// next Poll picks up any transition that came due while the process was down.
func (m *Manager) Restore(problems []models.Problem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range problems {
		p := problems[i]
		if _, exists := m.problems[p.ID]; exists {
			continue
		}
		m.problems[p.ID] = &p
		m.order = append(m.order, p.ID)
		if p.Status != models.ProblemCompleted {
			m.currentID = p.ID
		}
	}

	logger.Log.Info("Problems restored", zap.Int("count", len(problems)))
}

// Submit validates the request against the problem state, records and scores
// the submission, and fans out notifications. Validation failures (unknown
// problem, completed problem, submission limit, unknown model) record
// nothing; evaluation failures record a failed submission for the audit
// trail and report the error.
func (m *Manager) Submit(userID string, req models.SubmissionRequest) (models.Submission, error) {
	m.mu.Lock()
	p, ok := m.problems[req.ProblemID]
	if !ok {
		m.mu.Unlock()
		return models.Submission{}, fmt.Errorf("%w: %q", ErrProblemNotFound, req.ProblemID)
	}
	status := p.Status
	m.mu.Unlock()

	if status == models.ProblemCompleted {
		return models.Submission{}, ErrProblemClosed
	}

	if m.maxPerUser > 0 && m.store.CountForUser(req.ProblemID, userID) >= m.maxPerUser {
		return models.Submission{}, ErrSubmissionLimit
	}

	sub, err := m.store.Add(req.ProblemID, userID, req.TeamID, req.TeamName, req.ModelName, req.Metadata)
	if err != nil && sub.ID == "" {
		// Rejected before recording.
		return models.Submission{}, err
	}

	// Recorded submissions, including failed ones, reach the persistence
	// sink so the durable audit trail matches the in-memory log.
	m.sink.SubmissionAccepted(sub)

	if err != nil {
		return sub, err
	}

	m.hub.Publish(events.SubmissionAccepted, sub)
	m.hub.Publish(events.LeaderboardUpdated, req.ProblemID)

	if status == models.ProblemEvaluating {
		// Accepted for audit only: the frozen results cannot change.
		return sub, ErrWindowClosed
	}
	return sub, nil
}

// Poll checks every problem against the wall clock and completes those whose
// evaluation date has passed. Polls after completion are no-ops.
func (m *Manager) Poll() {
	now := m.clock()

	m.mu.Lock()
	var due []*models.Problem
	for _, p := range m.problems {
		switch {
		case p.Status == models.ProblemActive && !now.Before(p.EvaluationDate):
			// Check-and-set under the lock: the transition fires once no
			// matter how many polls observe the passed deadline.
			p.Status = models.ProblemEvaluating
			due = append(due, p)
		case p.Status == models.ProblemEvaluating:
			// A restart can leave a problem mid-transition; finish it.
			due = append(due, p)
		}
	}
	m.mu.Unlock()

	for _, p := range due {
		m.complete(p.ID, now)
	}

	if m.rotateWindow > 0 {
		if cur, ok := m.Current(); !ok || cur.Status == models.ProblemCompleted {
			m.Rotate(m.rotateWindow)
		}
	}
}

// complete freezes the final results: private scores become authoritative and
// ranks are recomputed against them.
func (m *Manager) complete(problemID string, now time.Time) {
	final := m.finalEntries(problemID)

	m.mu.Lock()
	p, ok := m.problems[problemID]
	if !ok || p.Status != models.ProblemEvaluating {
		m.mu.Unlock()
		return
	}
	p.FinalResults = &models.FinalResults{
		Submissions:        final,
		EvaluationComplete: true,
		EvaluationDate:     now,
	}
	p.Status = models.ProblemCompleted
	frozen := *p
	m.mu.Unlock()

	logger.Log.Info("Problem completed",
		zap.String("problem_id", problemID),
		zap.Int("final_entries", len(final)))

	m.hub.Publish(events.ProblemCompleted, frozen)
	m.hub.Publish(events.ProblemUpdated, frozen)
	m.sink.ProblemChanged(frozen)
}

// finalEntries snapshots the public leaderboard, then re-scores and re-ranks
// it against the private scores (the public/private split).
func (m *Manager) finalEntries(problemID string) []models.FinalLeaderboardEntry {
	public := m.aggregator.Recompute(problemID)

	final := make([]models.FinalLeaderboardEntry, 0, len(public))
	for _, e := range public {
		final = append(final, models.FinalLeaderboardEntry{
			UserID:           e.UserID,
			DisplayName:      e.DisplayName,
			Score:            e.PrivateScore,
			PublicScore:      e.PublicScore,
			PrivateScore:     e.PrivateScore,
			SubmissionsCount: e.SubmissionsCount,
			LastSubmissionAt: e.LastSubmissionAt,
			ModelName:        e.ModelName,
		})
	}

	sort.SliceStable(final, func(i, j int) bool {
		if final[i].PrivateScore != final[j].PrivateScore {
			return final[i].PrivateScore > final[j].PrivateScore
		}
		return final[i].LastSubmissionAt.Before(final[j].LastSubmissionAt)
	})
	for i := range final {
		final[i].Rank = i + 1
	}
	return final
}

// StartPoller runs Poll on a fixed interval until Stop is called.
func (m *Manager) StartPoller(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.quit:
				return
			case <-ticker.C:
				m.Poll()
			}
		}
	}()

	logger.Log.Info("Lifecycle poller started", zap.Duration("interval", interval))
}

func (m *Manager) Stop() {
	m.once.Do(func() { close(m.quit) })
}

// Current returns the current problem instance.
func (m *Manager) Current() (models.Problem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.problems[m.currentID]
	if !ok {
		return models.Problem{}, false
	}
	return *p, true
}

// Get returns the problem with the given id.
func (m *Manager) Get(problemID string) (models.Problem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.problems[problemID]
	if !ok {
		return models.Problem{}, false
	}
	return *p, true
}

// History returns every registered problem in creation order.
func (m *Manager) History() []models.Problem {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Problem, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.problems[id])
	}
	return out
}
