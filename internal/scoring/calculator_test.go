package scoring_test

import (
	"testing"

	"mlbattle/internal/models"
	"mlbattle/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tunedLogisticMeta() models.SubmissionMetadata {
	return models.SubmissionMetadata{
		Hyperparameters: map[string]any{
			"learningRate":   0.01,
			"regularization": 0.05,
		},
		Preprocessing: []string{"scaling"},
	}
}

func TestPublicScoreIsDeterministic(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())
	meta := tunedLogisticMeta()

	first, err := calc.PublicScore("ロジスティック回帰", meta)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := calc.PublicScore("ロジスティック回帰", meta)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScoresStayWithinBounds(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())

	metas := []models.SubmissionMetadata{
		{},
		tunedLogisticMeta(),
		{
			Hyperparameters: map[string]any{"learningRate": 5.0},
		},
		{
			Hyperparameters: map[string]any{
				"learningRate":   0.01,
				"regularization": 0.1,
				"epochs":         200,
			},
			Preprocessing: []string{
				"scaling", "normalization", "standardization", "imputation",
				"outlier_removal", "encoding", "binning", "scaling", "scaling",
			},
			FeatureEngineering: []string{
				"polynomial_features", "interaction_terms", "log_transform",
				"aggregation", "target_encoding", "feature_selection", "pca",
			},
		},
	}

	for model := range scoring.DefaultConfig().BasePerformance {
		for _, meta := range metas {
			public, err := calc.PublicScore(model, meta)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, public, 0.0)
			assert.LessOrEqual(t, public, 100.0)

			private, err := calc.PrivateScore(model, meta, public)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, private, 0.0)
			assert.LessOrEqual(t, private, 100.0)
		}
	}
}

func TestTunedLogisticRegressionScenario(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())
	meta := tunedLogisticMeta()

	public, err := calc.PublicScore("ロジスティック回帰", meta)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, public, 75.0)
	assert.LessOrEqual(t, public, 95.0)

	private, err := calc.PrivateScore("ロジスティック回帰", meta, public)
	require.NoError(t, err)

	// A simple, regularized model generalizes: the private score lands close
	// to the public one.
	drift := (private - public) / public
	assert.Less(t, drift, 0.15)
	assert.Greater(t, drift, -0.15)
}

func TestTunedHyperparametersBeatDefaults(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())

	tuned, err := calc.PublicScore("SVM", models.SubmissionMetadata{
		Hyperparameters: map[string]any{
			"learningRate":   0.01,
			"regularization": 0.1,
		},
		Preprocessing: []string{"scaling"},
	})
	require.NoError(t, err)

	untuned, err := calc.PublicScore("SVM", models.SubmissionMetadata{
		Preprocessing: []string{"scaling"},
	})
	require.NoError(t, err)

	assert.Greater(t, tuned, untuned)
}

func TestExtremeLearningRateIsPenalized(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())

	sane, err := calc.PublicScore("決定木", models.SubmissionMetadata{
		Hyperparameters: map[string]any{"learningRate": 0.05},
	})
	require.NoError(t, err)

	extreme, err := calc.PublicScore("決定木", models.SubmissionMetadata{
		Hyperparameters: map[string]any{"learningRate": 5.0},
	})
	require.NoError(t, err)

	assert.Greater(t, sane, extreme)
}

func TestModeratePipelineBeatsNoPipeline(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())

	bare, err := calc.PublicScore("ランダムフォレスト", models.SubmissionMetadata{})
	require.NoError(t, err)

	moderate, err := calc.PublicScore("ランダムフォレスト", models.SubmissionMetadata{
		Preprocessing:      []string{"scaling", "imputation"},
		FeatureEngineering: []string{"feature_selection"},
	})
	require.NoError(t, err)

	assert.Greater(t, moderate, bare)
}

func TestComplexOverfitModelDropsOnPrivateScore(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())

	meta := models.SubmissionMetadata{
		Hyperparameters: map[string]any{"learningRate": 0.01},
		FeatureEngineering: []string{
			"polynomial_features", "interaction_terms", "log_transform",
			"aggregation", "target_encoding", "feature_selection",
		},
	}

	public, err := calc.PublicScore("ニューラルネットワーク", meta)
	require.NoError(t, err)
	require.GreaterOrEqual(t, public, 90.0)

	private, err := calc.PrivateScore("ニューラルネットワーク", meta, public)
	require.NoError(t, err)
	assert.Less(t, private, public)
}

func TestUnknownModelIsRejected(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())

	assert.False(t, calc.KnowsModel("深層学習"))

	_, err := calc.PublicScore("深層学習", models.SubmissionMetadata{})
	assert.ErrorIs(t, err, scoring.ErrUnknownModel)

	_, err = calc.PrivateScore("深層学習", models.SubmissionMetadata{}, 80)
	assert.ErrorIs(t, err, scoring.ErrUnknownModel)
}

func TestNonNumericHyperparameterIsAnError(t *testing.T) {
	calc := scoring.NewCalculator(scoring.DefaultConfig())

	_, err := calc.PublicScore("ロジスティック回帰", models.SubmissionMetadata{
		Hyperparameters: map[string]any{"learningRate": "fast"},
	})
	assert.Error(t, err)
}
