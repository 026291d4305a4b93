// Package log defines standard attribute keys for pipeline operations.
//
// The keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that log lines from training runs, evaluation, and the
// dashboard can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model, e.g. "GradientBoostingRegressor".
	ModelNameKey = "model.name"

	// RunIDKey identifies one training run. Every stage of a run logs it.
	RunIDKey = "run.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging, e.g. "training", "dashboard".
	ComponentKey = "ml.component"

	// StageKey names the pipeline stage ("load", "validate", "split", "scale", "persist").
	StageKey = "pipeline.stage"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey record the partition sizes after splitting.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// ColumnKey names a single dataset column.
	ColumnKey = "data.column"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records root mean squared error in price units.
	RMSEKey = "metrics.rmse"

	// MAEKey records mean absolute error in price units.
	MAEKey = "metrics.mae"

	// IterationKey records the current boosting round.
	IterationKey = "training.iteration"
)

// Artifact and Service Context
const (
	// ArtifactKey is the store key (or path) of a persisted artifact.
	ArtifactKey = "artifact.key"

	// ArtifactBytesKey is the encoded size of an artifact.
	ArtifactBytesKey = "artifact.bytes"

	// EndpointKey is the URL of the external prediction service.
	EndpointKey = "service.endpoint"

	// StatusCodeKey is the HTTP status returned by the prediction service.
	StatusCodeKey = "service.status"

	// PredictionKey is a predicted price.
	PredictionKey = "preds.value"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// TestSizeKey records the test fraction used by the split.
	TestSizeKey = "config.test_size"
)

// Standard attribute values.
const (
	OperationLoad     = "load"
	OperationPrepare  = "prepare"
	OperationFit      = "fit"
	OperationEvaluate = "evaluate"
	OperationPredict  = "predict"
	OperationRender   = "render"
)
