// Package pipeline chains transformers and a final estimator under step names.
package pipeline

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

// Step represents a single step in the pipeline.
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // Transformer for intermediate steps, anything with Fit for the last
}

// Pipeline chains multiple transforms and a final estimator.
// Intermediate steps must implement model.Transformer.
type Pipeline struct {
	model.BaseEstimator
	logger log.Logger

	steps      []Step
	namedSteps map[string]interface{}
}

// New creates a new Pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	namedSteps := make(map[string]interface{}, len(steps))
	for _, step := range steps {
		namedSteps[step.Name] = step.Estimator
	}
	return &Pipeline{
		logger:     log.Nop(),
		steps:      steps,
		namedSteps: namedSteps,
	}
}

// WithLogger sets the logger used to report per-step fit timings.
func (p *Pipeline) WithLogger(logger log.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger.With(log.ComponentKey, "pipeline")
	}
	return p
}

// Fit fits all the transformers one after the other, transforming the data,
// then fits the final estimator.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	if len(p.steps) == 0 {
		return errors.NewValidationError("pipeline steps", "pipeline has no steps", 0)
	}

	Xt := X
	var err error

	for i := 0; i < len(p.steps)-1; i++ {
		step := p.steps[i]
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return errors.NewValidationError(
				"pipeline step",
				"all intermediate steps must be transformers",
				step.Name,
			)
		}

		start := time.Now()
		if Xt, err = transformer.FitTransform(Xt); err != nil {
			return errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
		p.logStep(step.Name, start)
	}

	finalStep := p.steps[len(p.steps)-1]
	fitter, ok := finalStep.Estimator.(model.Fitter)
	if !ok {
		return errors.NewValidationError(
			"pipeline final step",
			"final step must have Fit method",
			finalStep.Name,
		)
	}

	start := time.Now()
	if err = fitter.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "failed to fit final step '%s'", finalStep.Name)
	}
	p.logStep(finalStep.Name, start)

	p.SetFitted()
	return nil
}

func (p *Pipeline) logStep(name string, start time.Time) {
	p.logger.Debug("Pipeline step fitted",
		"step", name,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// Predict applies transforms to the data, and predicts with the final estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}

	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}

	finalStep := p.steps[len(p.steps)-1]
	predictor, ok := finalStep.Estimator.(model.Predictor)
	if !ok {
		return nil, errors.NewValidationError(
			"pipeline final step",
			"final step must have Predict method for prediction",
			finalStep.Name,
		)
	}
	return predictor.Predict(Xt)
}

// FeatureImportances delegates to the final step. A final step without the
// capability yields a ModelIntrospectionError.
func (p *Pipeline) FeatureImportances() ([]float64, error) {
	if len(p.steps) == 0 {
		return nil, errors.NewModelIntrospectionError("Pipeline", "pipeline has no steps")
	}
	finalStep := p.steps[len(p.steps)-1]
	importer, ok := finalStep.Estimator.(model.FeatureImporter)
	if !ok {
		return nil, errors.NewModelIntrospectionError(
			fmt.Sprintf("Pipeline[%s]", finalStep.Name),
			fmt.Sprintf("final step %T does not expose feature importances", finalStep.Estimator),
		)
	}
	return importer.FeatureImportances()
}

// FinalEstimator returns the estimator of the last step, or nil for an empty pipeline.
func (p *Pipeline) FinalEstimator() interface{} {
	if len(p.steps) == 0 {
		return nil
	}
	return p.steps[len(p.steps)-1].Estimator
}

// NamedStep returns the estimator registered under name.
func (p *Pipeline) NamedStep(name string) (interface{}, bool) {
	est, ok := p.namedSteps[name]
	return est, ok
}

// NamedSteps returns the steps as a map for easy access by name.
func (p *Pipeline) NamedSteps() map[string]interface{} {
	return p.namedSteps
}

// Steps returns the list of steps.
func (p *Pipeline) Steps() []Step {
	steps := make([]Step, len(p.steps))
	copy(steps, p.steps)
	return steps
}

// GetParams returns the parameters of every step prefixed by the step name.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, step := range p.steps {
		if paramsGetter, ok := step.Estimator.(interface {
			GetParams() map[string]interface{}
		}); ok {
			for key, value := range paramsGetter.GetParams() {
				params[fmt.Sprintf("%s__%s", step.Name, key)] = value
			}
		}
	}
	return params
}

// transform applies all transforms except the final estimator.
func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	var err error

	for i := 0; i < len(p.steps)-1; i++ {
		step := p.steps[i]
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, errors.NewValidationError(
				"pipeline step",
				"intermediate steps must be transformers",
				step.Name,
			)
		}

		Xt, err = transformer.Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	return Xt, nil
}
