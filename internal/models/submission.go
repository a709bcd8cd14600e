package models

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending   = "pending"
	StatusEvaluated = "evaluated"
	StatusFailed    = "failed"
)

// SubmissionMetadata describes how a model was trained. The scorer derives
// both public and private scores from these fields alone.
type SubmissionMetadata struct {
	Hyperparameters    map[string]any `json:"hyperparameters"`
	Preprocessing      []string       `json:"preprocessing"`
	FeatureEngineering []string       `json:"feature_engineering"`
	TrainingTime       float64        `json:"training_time"`
	ValidationTime     float64        `json:"validation_time"`
}

type Submission struct {
	ID           string             `db:"id" json:"id"`
	UserID       string             `db:"user_id" json:"user_id"`
	ProblemID    string             `db:"problem_id" json:"problem_id"`
	TeamID       string             `db:"team_id" json:"team_id,omitempty"`
	TeamName     string             `db:"team_name" json:"team_name,omitempty"`
	ModelName    string             `db:"model_name" json:"model_name"`
	Score        float64            `db:"score" json:"score"`
	PublicScore  float64            `db:"public_score" json:"public_score"`
	PrivateScore float64            `db:"private_score" json:"private_score,omitempty"`
	Status       string             `db:"status" json:"status"`
	SubmittedAt  time.Time          `db:"submitted_at" json:"submitted_at"`
	Metadata     SubmissionMetadata `db:"-" json:"metadata"`
}

type SubmissionRequest struct {
	ProblemID string             `json:"problem_id" binding:"required"`
	ModelName string             `json:"model_name" binding:"required"`
	TeamID    string             `json:"team_id"`
	TeamName  string             `json:"team_name"`
	Metadata  SubmissionMetadata `json:"metadata"`
}

func (r *SubmissionRequest) ValidateRequest() error {
	if strings.TrimSpace(r.ProblemID) == "" {
		return errors.New("problem ID cannot be empty")
	}

	if strings.TrimSpace(r.ModelName) == "" {
		return errors.New("model name cannot be empty")
	}

	if r.Metadata.TrainingTime < 0 || r.Metadata.ValidationTime < 0 {
		return errors.New("training and validation times must be non-negative")
	}

	return nil
}

// SubmissionStats summarizes the history of one problem.
type SubmissionStats struct {
	TotalSubmissions     int     `json:"total_submissions"`
	EvaluatedSubmissions int     `json:"evaluated_submissions"`
	FailedSubmissions    int     `json:"failed_submissions"`
	AverageScore         float64 `json:"average_score"`
	Participants         int     `json:"participants"`
}
