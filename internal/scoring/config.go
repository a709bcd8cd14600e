package scoring

// Config holds every tunable constant of the scoring formula. The bands and
// multipliers model an "effort vs. overfitting" curve; the exact numbers are
// configuration, not business logic, and DefaultConfig is the tuning shipped
// with the game.
type Config struct {
	// BasePerformance maps a model family to its baseline score.
	BasePerformance map[string]float64
	// Complexity maps a model family to a [0,1] complexity estimate used by
	// the private-score factors.
	Complexity map[string]float64

	// Additive quality bonuses applied on top of the base performance.
	LearningRateBonus    float64
	LearningRatePenalty  float64
	RegularizationBonus  float64
	EpochsBonus          float64
	EstimatorsBonus      float64
	MaxDepthBonus        float64
	PreprocessingBonus   float64
	PreprocessingCap     float64
	FeatureEngBonus      float64
	FeatureEngCap        float64

	// Multiplicative per-key hyperparameter adjustments.
	HyperparamInRange  float64
	HyperparamOutRange float64

	// Technique whitelists and their multipliers.
	KnownPreprocessing   map[string]bool
	KnownFeatureEng      map[string]bool
	TechniqueBonus       float64
	MaxPreprocessingLen  int
	MaxFeatureEngLen     int
	LongListPenalty      float64

	// Private-score factors.
	ComplexityFactorBase  float64
	ComplexityFactorSlope float64
	GeneralizationBonus   float64
	GeneralizationPenalty float64
	OverfitHardPenalty    float64
	OverfitSoftPenalty    float64
}

func DefaultConfig() Config {
	return Config{
		BasePerformance: map[string]float64{
			"ロジスティック回帰":   75,
			"線形回帰":        72,
			"決定木":         70,
			"k-NN":        68,
			"SVM":         80,
			"ランダムフォレスト":   84,
			"ニューラルネットワーク": 86,
			"XGBoost":     90,
		},
		Complexity: map[string]float64{
			"ロジスティック回帰":   0.2,
			"線形回帰":        0.1,
			"決定木":         0.4,
			"k-NN":        0.3,
			"SVM":         0.5,
			"ランダムフォレスト":   0.7,
			"ニューラルネットワーク": 0.9,
			"XGBoost":     0.8,
		},

		LearningRateBonus:   0.04,
		LearningRatePenalty: 0.06,
		RegularizationBonus: 0.03,
		EpochsBonus:         0.02,
		EstimatorsBonus:     0.03,
		MaxDepthBonus:       0.02,
		PreprocessingBonus:  0.02,
		PreprocessingCap:    0.10,
		FeatureEngBonus:     0.015,
		FeatureEngCap:       0.09,

		HyperparamInRange:  1.02,
		HyperparamOutRange: 0.97,

		KnownPreprocessing: map[string]bool{
			"scaling":         true,
			"normalization":   true,
			"standardization": true,
			"imputation":      true,
			"outlier_removal": true,
			"encoding":        true,
			"binning":         true,
		},
		KnownFeatureEng: map[string]bool{
			"polynomial_features": true,
			"interaction_terms":   true,
			"log_transform":       true,
			"aggregation":         true,
			"target_encoding":     true,
			"feature_selection":   true,
			"pca":                 true,
		},
		TechniqueBonus:      1.01,
		MaxPreprocessingLen: 8,
		MaxFeatureEngLen:    10,
		LongListPenalty:     0.95,

		ComplexityFactorBase:  1.02,
		ComplexityFactorSlope: 0.06,
		GeneralizationBonus:   1.03,
		GeneralizationPenalty: 0.97,
		OverfitHardPenalty:    0.85,
		OverfitSoftPenalty:    0.93,
	}
}
