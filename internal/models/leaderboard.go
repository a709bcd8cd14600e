package models

import "time"

// LeaderboardEntry is one ranked row derived from a user's (or team's) best
// evaluated submission. IsCurrentUser is a view-only flag filled in by the
// handler for the authenticated caller; it is never persisted.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           string    `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	Score            float64   `json:"score"`
	PublicScore      float64   `json:"public_score"`
	PrivateScore     float64   `json:"-"`
	SubmissionsCount int       `json:"submissions_count"`
	LastSubmissionAt time.Time `json:"last_submission_at"`
	ModelName        string    `json:"model_name"`
	IsCurrentUser    bool      `json:"is_current_user"`
}

// FinalLeaderboardEntry is a frozen row of a completed problem. Both scores
// are visible and the rank is computed against the private score.
type FinalLeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           string    `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	Score            float64   `json:"score"`
	PublicScore      float64   `json:"public_score"`
	PrivateScore     float64   `json:"private_score"`
	SubmissionsCount int       `json:"submissions_count"`
	LastSubmissionAt time.Time `json:"last_submission_at"`
	ModelName        string    `json:"model_name"`
}
