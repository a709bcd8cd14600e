package scoring

import (
	"errors"
	"fmt"
	"math"

	"mlbattle/internal/models"
)

var ErrUnknownModel = errors.New("unknown model name")

// Calculator turns submission metadata into reproducible public and private
// scores. Both methods are pure: no randomness, no dependence on call order,
// no side effects. Callers own writing the results back onto the submission.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// KnowsModel reports whether the model family has a base-performance entry.
// Submitting an unknown model is a validation error, not a computation error.
func (c *Calculator) KnowsModel(modelName string) bool {
	_, ok := c.cfg.BasePerformance[modelName]
	return ok
}

// PublicScore computes the score shown on the leaderboard while the problem
// window is open. Result is clamped to [0, 100].
func (c *Calculator) PublicScore(modelName string, meta models.SubmissionMetadata) (float64, error) {
	base, ok := c.cfg.BasePerformance[modelName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, modelName)
	}

	hyperQuality, err := c.hyperparamQuality(meta.Hyperparameters)
	if err != nil {
		return 0, err
	}

	preprocQuality := math.Min(c.cfg.PreprocessingBonus*float64(len(meta.Preprocessing)), c.cfg.PreprocessingCap)
	featQuality := math.Min(c.cfg.FeatureEngBonus*float64(len(meta.FeatureEngineering)), c.cfg.FeatureEngCap)

	score := base * (1 + hyperQuality + preprocQuality + featQuality)
	score *= complexityAdjustment(len(meta.Preprocessing) + len(meta.FeatureEngineering))

	hyperAdj, err := c.hyperparamAdjustment(meta.Hyperparameters)
	if err != nil {
		return 0, err
	}
	score *= hyperAdj

	score *= c.techniqueAdjustment(meta.Preprocessing, c.cfg.KnownPreprocessing, c.cfg.MaxPreprocessingLen)
	score *= c.techniqueAdjustment(meta.FeatureEngineering, c.cfg.KnownFeatureEng, c.cfg.MaxFeatureEngLen)

	return clamp(score), nil
}

// PrivateScore computes the held-back score revealed when the problem's
// evaluation phase closes. It derives from the public score and a comparison
// between model complexity and technique count that detects likely
// overfitting. Result is clamped to [0, 100].
func (c *Calculator) PrivateScore(modelName string, meta models.SubmissionMetadata, publicScore float64) (float64, error) {
	complexity, ok := c.cfg.Complexity[modelName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, modelName)
	}

	// Complex models degrade more on unseen data.
	complexityFactor := c.cfg.ComplexityFactorBase - c.cfg.ComplexityFactorSlope*complexity

	generalization := c.cfg.GeneralizationPenalty
	if reg, present, err := numericParam(meta.Hyperparameters, "regularization"); err != nil {
		return 0, err
	} else if present && reg >= 0.001 && reg <= 0.5 {
		generalization = c.cfg.GeneralizationBonus
	}

	penalty := 1.0
	techniques := len(meta.Preprocessing) + len(meta.FeatureEngineering)
	switch {
	case complexity >= 0.7 && len(meta.FeatureEngineering) >= 6 && publicScore >= 90:
		penalty = c.cfg.OverfitHardPenalty
	case complexity >= 0.5 && techniques >= 10:
		penalty = c.cfg.OverfitSoftPenalty
	}

	return clamp(publicScore * complexityFactor * generalization * penalty), nil
}

// hyperparamQuality rewards hyperparameters tuned into sane bands and
// penalizes extreme learning rates.
func (c *Calculator) hyperparamQuality(params map[string]any) (float64, error) {
	quality := 0.0

	if lr, present, err := numericParam(params, "learningRate"); err != nil {
		return 0, err
	} else if present {
		switch {
		case lr >= 0.001 && lr <= 0.1:
			quality += c.cfg.LearningRateBonus
		case lr <= 0 || lr >= 1:
			quality -= c.cfg.LearningRatePenalty
		}
	}

	if reg, present, err := numericParam(params, "regularization"); err != nil {
		return 0, err
	} else if present && reg >= 0.001 && reg <= 0.5 {
		quality += c.cfg.RegularizationBonus
	}

	if epochs, present, err := numericParam(params, "epochs"); err != nil {
		return 0, err
	} else if present && epochs >= 50 && epochs <= 1000 {
		quality += c.cfg.EpochsBonus
	}

	if n, present, err := numericParam(params, "nEstimators"); err != nil {
		return 0, err
	} else if present && n >= 50 && n <= 200 {
		quality += c.cfg.EstimatorsBonus
	}

	if depth, present, err := numericParam(params, "maxDepth"); err != nil {
		return 0, err
	} else if present && depth >= 3 && depth <= 15 {
		quality += c.cfg.MaxDepthBonus
	}

	return quality, nil
}

// hyperparamAdjustment applies a multiplicative bonus or penalty per
// recognized hyperparameter key depending on whether its value falls inside
// the documented reasonable range.
func (c *Calculator) hyperparamAdjustment(params map[string]any) (float64, error) {
	adjustment := 1.0

	ranges := []struct {
		key      string
		min, max float64
	}{
		{"learningRate", 0.001, 0.1},
		{"regularization", 0.001, 0.5},
		{"epochs", 50, 1000},
	}

	for _, r := range ranges {
		v, present, err := numericParam(params, r.key)
		if err != nil {
			return 0, err
		}
		if !present {
			continue
		}
		if v >= r.min && v <= r.max {
			adjustment *= c.cfg.HyperparamInRange
		} else {
			adjustment *= c.cfg.HyperparamOutRange
		}
	}

	return adjustment, nil
}

// techniqueAdjustment rewards recognized technique names and penalizes
// implausibly long lists.
func (c *Calculator) techniqueAdjustment(steps []string, known map[string]bool, maxLen int) float64 {
	adjustment := 1.0
	for _, step := range steps {
		if known[step] {
			adjustment *= c.cfg.TechniqueBonus
		}
	}
	if len(steps) > maxLen {
		adjustment *= c.cfg.LongListPenalty
	}
	return adjustment
}

// complexityAdjustment maps the total technique count onto the effort curve:
// doing nothing is penalized, a moderate pipeline is rewarded, and returns
// diminish past the sweet spot.
func complexityAdjustment(steps int) float64 {
	switch {
	case steps == 0:
		return 0.8
	case steps <= 3:
		return 1.0
	case steps <= 6:
		return 1.1
	case steps <= 10:
		return 1.05
	default:
		return 0.95
	}
}

// numericParam coerces a hyperparameter value to float64. A present key with
// a non-numeric or non-finite value is malformed metadata.
func numericParam(params map[string]any, key string) (float64, bool, error) {
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return 0, false, fmt.Errorf("hyperparameter %q has non-numeric value %v", key, raw)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("hyperparameter %q is not finite", key)
	}
	return v, true, nil
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}
