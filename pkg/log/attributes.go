// Package log defines standard attribute keys for training and inference logs.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so log analysis can filter on them.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "RandomForestRegressor", "DecisionTreeRegressor"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a specific fitted artifact (UUID string).
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score", "save", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "trainer", "dashboard", "ensemble"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// PathKey is a dataset or artifact path on disk.
	PathKey = "data.path"
)

// Performance and evaluation
const (
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records the coefficient of determination.
	// Range [-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"
	MAEKey     = "metrics.mae"
	RMSEKey    = "metrics.rmse"
)

// Prediction
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// PriceKey is a single predicted price.
	PriceKey = "preds.price"
)

// Hyperparameters
const (
	// NEstimatorsKey records the number of trees in an ensemble.
	NEstimatorsKey = "hyperparams.n_estimators"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// HTTP
const (
	HTTPMethodKey = "http.method"
	HTTPPathKey   = "http.path"
	HTTPStatusKey = "http.status"
	RequestIDKey  = "http.request_id"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationSave    = "save"
	OperationLoad    = "load"

	PhaseTraining  = "training"
	PhaseTesting   = "testing"
	PhaseInference = "inference"
)
