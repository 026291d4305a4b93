// Package config holds the run configuration shared by the training run, the
// evaluator and the dashboard.
//
// A Config is a plain value. Components receive it explicitly; nothing in this
// package keeps global state, so tests can run side by side with different
// feature sets, seeds and paths.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/preprocessing"
)

// Feature is one model input column and its human-readable description.
type Feature struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Paths are the artifact locations, relative to the artifact store root.
type Paths struct {
	Dataset    string `yaml:"dataset"`
	Scaler     string `yaml:"scaler"`
	Model      string `yaml:"model"`
	Metrics    string `yaml:"metrics"`
	Importance string `yaml:"importance"`
	History    string `yaml:"history"`
}

// Boosting are the gradient boosting hyperparameters of the training run.
type Boosting struct {
	NEstimators    int     `yaml:"n_estimators"`
	LearningRate   float64 `yaml:"learning_rate"`
	MaxDepth       int     `yaml:"max_depth"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf"`
	Subsample      float64 `yaml:"subsample"`
}

// Config is the complete run configuration.
type Config struct {
	Features     []Feature                        `yaml:"features"`
	Target       string                           `yaml:"target"`
	Paths        Paths                            `yaml:"paths"`
	TestSize     float64                          `yaml:"test_size"`
	RandomSeed   uint64                           `yaml:"random_seed"`
	ZeroVariance preprocessing.ZeroVariancePolicy `yaml:"zero_variance"`
	Boosting     Boosting                         `yaml:"boosting"`

	PredictURL     string        `yaml:"predict_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
}

// Default returns the Boston housing configuration.
func Default() Config {
	return Config{
		Features: []Feature{
			{Name: "LSTAT", Description: "% lower status of the population"},
			{Name: "RM", Description: "Average number of rooms per dwelling"},
			{Name: "CRIM", Description: "Per capita crime rate by town"},
			{Name: "PTRATIO", Description: "Pupil-teacher ratio by town"},
			{Name: "INDUS", Description: "Proportion of non-retail business acres per town"},
			{Name: "TAX", Description: "Full-value property-tax rate per $10,000"},
			{Name: "NOX", Description: "Nitric oxides concentration (parts per 10 million)"},
			{Name: "B", Description: "1000(Bk - 0.63)^2 where Bk is the proportion of Black residents by town"},
		},
		Target: "MEDV",
		Paths: Paths{
			Dataset:    "data/boston.csv",
			Scaler:     "models/scaler.gob",
			Model:      "models/model.gob",
			Metrics:    "models/metrics.json",
			Importance: "models/feature_importance.json",
			History:    "data/predictions.csv",
		},
		TestSize:     0.2,
		RandomSeed:   42,
		ZeroVariance: preprocessing.ZeroVarianceReject,
		Boosting: Boosting{
			NEstimators:    100,
			LearningRate:   0.1,
			MaxDepth:       3,
			MinSamplesLeaf: 1,
			Subsample:      1.0,
		},
		PredictURL:     "http://localhost:8000",
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
	}
}

// Option modifies a Config under construction.
type Option func(*Config)

// WithFeatures replaces the feature list.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) {
		c.Features = append([]Feature(nil), features...)
	}
}

// WithTarget sets the target column.
func WithTarget(target string) Option {
	return func(c *Config) { c.Target = target }
}

// WithPaths replaces every artifact path.
func WithPaths(p Paths) Option {
	return func(c *Config) { c.Paths = p }
}

// WithSplit sets the test fraction and the split seed.
func WithSplit(testSize float64, seed uint64) Option {
	return func(c *Config) {
		c.TestSize = testSize
		c.RandomSeed = seed
	}
}

// WithZeroVariance sets the policy for constant training features.
func WithZeroVariance(p preprocessing.ZeroVariancePolicy) Option {
	return func(c *Config) { c.ZeroVariance = p }
}

// WithBoosting sets the model hyperparameters.
func WithBoosting(b Boosting) Option {
	return func(c *Config) { c.Boosting = b }
}

// WithPredictURL sets the prediction service base URL.
func WithPredictURL(url string) Option {
	return func(c *Config) { c.PredictURL = url }
}

// New returns Default with opts applied, validated.
func New(opts ...Option) (Config, error) {
	c := Default()
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value; a features list in the file replaces the default one.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewArtifactIOError("load", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs error

	if len(c.Features) == 0 {
		errs = multierr.Append(errs, errors.NewValidationError("features", "at least one feature is required", 0))
	}
	seen := make(map[string]bool, len(c.Features))
	for i, f := range c.Features {
		name := strings.TrimSpace(f.Name)
		switch {
		case name == "":
			errs = multierr.Append(errs, errors.NewValidationError(fmt.Sprintf("features[%d].name", i), "must not be empty", f.Name))
		case seen[name]:
			errs = multierr.Append(errs, errors.NewValidationError(fmt.Sprintf("features[%d].name", i), "duplicate feature", f.Name))
		case name == c.Target:
			errs = multierr.Append(errs, errors.NewValidationError(fmt.Sprintf("features[%d].name", i), "target cannot be a feature", f.Name))
		}
		seen[name] = true
	}
	if strings.TrimSpace(c.Target) == "" {
		errs = multierr.Append(errs, errors.NewValidationError("target", "must not be empty", c.Target))
	}
	if !(c.TestSize > 0 && c.TestSize < 1) {
		errs = multierr.Append(errs, errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize))
	}
	if _, err := preprocessing.ParseZeroVariancePolicy(string(c.ZeroVariance)); err != nil {
		errs = multierr.Append(errs, err)
	}

	for _, p := range []struct{ key, value string }{
		{"paths.dataset", c.Paths.Dataset},
		{"paths.scaler", c.Paths.Scaler},
		{"paths.model", c.Paths.Model},
		{"paths.metrics", c.Paths.Metrics},
		{"paths.importance", c.Paths.Importance},
	} {
		if p.value == "" {
			errs = multierr.Append(errs, errors.NewValidationError(p.key, "must not be empty", p.value))
		}
	}

	b := c.Boosting
	if b.NEstimators < 1 {
		errs = multierr.Append(errs, errors.NewValidationError("boosting.n_estimators", "must be at least 1", b.NEstimators))
	}
	if b.LearningRate <= 0 {
		errs = multierr.Append(errs, errors.NewValidationError("boosting.learning_rate", "must be positive", b.LearningRate))
	}
	if b.MaxDepth < 1 {
		errs = multierr.Append(errs, errors.NewValidationError("boosting.max_depth", "must be at least 1", b.MaxDepth))
	}
	if b.MinSamplesLeaf < 1 {
		errs = multierr.Append(errs, errors.NewValidationError("boosting.min_samples_leaf", "must be at least 1", b.MinSamplesLeaf))
	}
	if !(b.Subsample > 0 && b.Subsample <= 1) {
		errs = multierr.Append(errs, errors.NewValidationError("boosting.subsample", "must be in (0, 1]", b.Subsample))
	}
	if c.RequestTimeout < 0 {
		errs = multierr.Append(errs, errors.NewValidationError("request_timeout", "must not be negative", c.RequestTimeout))
	}

	return errs
}

// FeatureNames returns the configured feature names in column order.
func (c Config) FeatureNames() []string {
	names := make([]string, len(c.Features))
	for i, f := range c.Features {
		names[i] = f.Name
	}
	return names
}

// Description returns the description of the named feature, or "".
func (c Config) Description(name string) string {
	for _, f := range c.Features {
		if f.Name == name {
			return f.Description
		}
	}
	return ""
}
