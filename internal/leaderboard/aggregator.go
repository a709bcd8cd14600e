package leaderboard

import (
	"sort"

	"mlbattle/internal/models"
	"mlbattle/internal/store"
)

// Aggregator derives the ranked view from the submission store. It keeps no
// state of its own: every Recompute reads a fresh snapshot and returns a new
// list, so calling it twice with no new submissions yields identical output.
type Aggregator struct {
	store *store.SubmissionStore
}

func NewAggregator(s *store.SubmissionStore) *Aggregator {
	return &Aggregator{store: s}
}

// Recompute returns the full ranked leaderboard for the problem: one entry
// per user, or per team when submissions declare one, carrying that group's
// best evaluated submission. The entry's model name and timestamp belong to
// that best submission, not the group's latest one. Ranks are contiguous
// 1..N; ties on score go to the earlier submission. Callers slice the result
// for display limits.
func (a *Aggregator) Recompute(problemID string) []models.LeaderboardEntry {
	type group struct {
		best  models.Submission
		count int
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, sub := range a.store.AllEvaluated(problemID) {
		key := sub.UserID
		if sub.TeamID != "" {
			key = "team:" + sub.TeamID
		}

		g, ok := groups[key]
		if !ok {
			g = &group{best: sub}
			groups[key] = g
			order = append(order, key)
		} else if betterThan(sub, g.best) {
			g.best = sub
		}
		g.count++
	}

	entries := make([]models.LeaderboardEntry, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		entries = append(entries, models.LeaderboardEntry{
			UserID:           g.best.UserID,
			DisplayName:      displayName(g.best),
			Score:            g.best.Score,
			PublicScore:      g.best.PublicScore,
			PrivateScore:     g.best.PrivateScore,
			SubmissionsCount: g.count,
			LastSubmissionAt: g.best.SubmittedAt,
			ModelName:        g.best.ModelName,
		})
	}

	// Ties do not share a rank: the earlier best submission wins the lower
	// rank number.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].LastSubmissionAt.Before(entries[j].LastSubmissionAt)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// displayName resolves the row label: team name when merged under a team,
// otherwise a synthetic per-user team label as the game always shows one.
func displayName(sub models.Submission) string {
	if sub.TeamID != "" {
		if sub.TeamName != "" {
			return sub.TeamName
		}
		return "Team_" + sub.TeamID
	}
	return "Team_" + sub.UserID
}

func betterThan(a, b models.Submission) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}
