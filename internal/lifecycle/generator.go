package lifecycle

import (
	"fmt"
	"math/rand"
	"time"

	"mlbattle/internal/models"
)

type problemTemplate struct {
	title       string
	description string
	problemType string
	difficulty  string
}

var problemTemplates = []problemTemplate{
	{
		title:       "顧客離脱予測",
		description: "顧客の属性から離脱を予測する分類問題です。",
		problemType: models.ProblemClassification,
		difficulty:  "medium",
	},
	{
		title:       "医療診断支援",
		description: "患者の検査データから疾患を診断する分類問題です。",
		problemType: models.ProblemClassification,
		difficulty:  "hard",
	},
	{
		title:       "ローンデフォルト予測",
		description: "借入者の属性からデフォルトリスクを予測する分類問題です。",
		problemType: models.ProblemClassification,
		difficulty:  "medium",
	},
	{
		title:       "売上予測",
		description: "商品の特徴から売上を予測する回帰問題です。",
		problemType: models.ProblemRegression,
		difficulty:  "medium",
	},
	{
		title:       "住宅価格予測",
		description: "住宅の特徴から価格を予測する回帰問題です。",
		problemType: models.ProblemRegression,
		difficulty:  "medium",
	},
	{
		title:       "株価予測",
		description: "企業の財務指標から株価を予測する回帰問題です。",
		problemType: models.ProblemRegression,
		difficulty:  "hard",
	},
}

// GenerateProblem creates a new active problem instance from the template
// catalog. The private scores are finalized one day after the window closes.
func GenerateProblem(now time.Time, window time.Duration) models.Problem {
	tpl := problemTemplates[rand.Intn(len(problemTemplates))]
	end := now.Add(window)

	return models.Problem{
		ID:             fmt.Sprintf("problem_%d", now.UnixMilli()),
		Title:          tpl.title,
		Description:    tpl.description,
		Type:           tpl.problemType,
		Difficulty:     tpl.difficulty,
		StartDate:      now,
		EndDate:        end,
		EvaluationDate: end.Add(24 * time.Hour),
		Status:         models.ProblemActive,
	}
}
