package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mlbattle/internal/models"

	"github.com/jmoiron/sqlx"
)

// SubmissionRepository is the durable sink behind the in-memory store. The
// event pipeline delivers at least once, so every write is an idempotent
// upsert keyed by submission id.
type SubmissionRepository interface {
	UpsertSubmission(ctx context.Context, sub models.Submission) error
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
	UpsertProblem(ctx context.Context, p models.Problem) error
	ListProblems(ctx context.Context) ([]models.Problem, error)
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) UpsertSubmission(ctx context.Context, sub models.Submission) error {
	metadata, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode submission metadata: %w", err)
	}

	query := `
        INSERT INTO submissions
            (id, user_id, problem_id, team_id, team_name, model_name,
             score, public_score, private_score, status, submitted_at, metadata)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            score = VALUES(score),
            public_score = VALUES(public_score),
            private_score = VALUES(private_score),
            status = VALUES(status),
            metadata = VALUES(metadata)`

	_, err = r.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.TeamID, sub.TeamName, sub.ModelName,
		sub.Score, sub.PublicScore, sub.PrivateScore, sub.Status, sub.SubmittedAt, metadata)
	if err != nil {
		return fmt.Errorf("failed to upsert submission %s: %w", sub.ID, err)
	}

	return nil
}

func (r *submissionRepository) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	query := `
        SELECT id, user_id, problem_id, team_id, team_name, model_name,
               score, public_score, private_score, status, submitted_at, metadata
        FROM submissions
        ORDER BY submitted_at`

	var rows []struct {
		models.Submission
		RawMetadata []byte `db:"metadata"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	subs := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		sub := row.Submission
		if len(row.RawMetadata) > 0 {
			if err := json.Unmarshal(row.RawMetadata, &sub.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for submission %s: %w", sub.ID, err)
			}
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func (r *submissionRepository) UpsertProblem(ctx context.Context, p models.Problem) error {
	var finalResults []byte
	if p.FinalResults != nil {
		var err error
		finalResults, err = json.Marshal(p.FinalResults)
		if err != nil {
			return fmt.Errorf("failed to encode final results: %w", err)
		}
	}

	query := `
        INSERT INTO problems
            (id, title, description, type, difficulty,
             start_date, end_date, evaluation_date, status, final_results)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            status = VALUES(status),
            evaluation_date = VALUES(evaluation_date),
            final_results = VALUES(final_results)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Title, p.Description, p.Type, p.Difficulty,
		p.StartDate, p.EndDate, p.EvaluationDate, p.Status, finalResults)
	if err != nil {
		return fmt.Errorf("failed to upsert problem %s: %w", p.ID, err)
	}

	return nil
}

func (r *submissionRepository) ListProblems(ctx context.Context) ([]models.Problem, error) {
	query := `
        SELECT id, title, description, type, difficulty,
               start_date, end_date, evaluation_date, status, final_results
        FROM problems
        ORDER BY start_date`

	var rows []struct {
		ID              string    `db:"id"`
		Title           string    `db:"title"`
		Description     string    `db:"description"`
		Type            string    `db:"type"`
		Difficulty      string    `db:"difficulty"`
		StartDate       time.Time `db:"start_date"`
		EndDate         time.Time `db:"end_date"`
		EvaluationDate  time.Time `db:"evaluation_date"`
		Status          string    `db:"status"`
		RawFinalResults []byte    `db:"final_results"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}

	problems := make([]models.Problem, 0, len(rows))
	for _, row := range rows {
		p := models.Problem{
			ID:             row.ID,
			Title:          row.Title,
			Description:    row.Description,
			Type:           row.Type,
			Difficulty:     row.Difficulty,
			StartDate:      row.StartDate,
			EndDate:        row.EndDate,
			EvaluationDate: row.EvaluationDate,
			Status:         row.Status,
		}
		if len(row.RawFinalResults) > 0 {
			p.FinalResults = &models.FinalResults{}
			if err := json.Unmarshal(row.RawFinalResults, p.FinalResults); err != nil {
				return nil, fmt.Errorf("failed to decode final results for problem %s: %w", p.ID, err)
			}
		}
		problems = append(problems, p)
	}

	return problems, nil
}
