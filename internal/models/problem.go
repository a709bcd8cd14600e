package models

import "time"

const (
	ProblemActive     = "active"
	ProblemEvaluating = "evaluating"
	ProblemCompleted  = "completed"
)

const (
	ProblemClassification = "classification"
	ProblemRegression     = "regression"
)

type Problem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Type           string    `json:"type"`
	Difficulty     string    `json:"difficulty"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	EvaluationDate time.Time `json:"evaluation_date"`
	Status         string    `json:"status"`

	// FinalResults is nil until the problem completes, then frozen forever.
	FinalResults *FinalResults `json:"final_results,omitempty"`
}

type FinalResults struct {
	Submissions        []FinalLeaderboardEntry `json:"submissions"`
	EvaluationComplete bool                    `json:"evaluation_complete"`
	EvaluationDate     time.Time               `json:"evaluation_date"`
}

// AcceptsSubmissions reports whether the problem is still inside its window.
// The window check is advisory; status is the authoritative gate.
func (p *Problem) AcceptsSubmissions(now time.Time) bool {
	if p.Status != ProblemActive {
		return false
	}
	return !now.Before(p.StartDate) && now.Before(p.EndDate)
}

type TimeRemaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func (p *Problem) TimeRemaining(now time.Time) TimeRemaining {
	left := p.EndDate.Sub(now)
	if left <= 0 {
		return TimeRemaining{}
	}

	return TimeRemaining{
		Days:    int(left.Hours()) / 24,
		Hours:   int(left.Hours()) % 24,
		Minutes: int(left.Minutes()) % 60,
	}
}
