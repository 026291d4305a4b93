// Package houseprice is a small data-science application for the Boston
// housing dataset: a one-shot training run, a terminal dashboard over the
// artifacts it writes, and a client for an external prediction service.
//
// # Installation
//
//	go install github.com/YuminosukeSato/houseprice/cmd/houseprice@latest
//
// # Quick Start
//
// Train the model and write the scaler, model, metrics and importance
// artifacts under models/:
//
//	houseprice train
//
// Explore the dataset and the model performance, writing PNG charts:
//
//	houseprice overview --charts charts
//	houseprice analytics --feature LSTAT --charts charts
//
// Ask the prediction service for a price and review the history:
//
//	houseprice predict --RM 7 --LSTAT 5
//	houseprice history --export house_price_predictions.csv
//
// The same pipeline is available as a library:
//
//	cfg := config.Default()
//	store := artifact.NewFileStore("")
//	result, err := training.Run(ctx, cfg, store, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("test R²: %.4f\n", result.Metrics.TestR2)
//
// # Packages
//
//   - config: run configuration (features, target, paths, split, model parameters)
//   - dataset: CSV loading, column access, describe and correlation
//   - preprocessing: z-score scaler and seeded train/test split
//   - training: data preparation, evaluation and the training run
//   - metrics: MSE, RMSE, MAE, R²
//   - linear: ordinary least squares regression
//   - sklearn/ensemble: gradient boosted regression trees
//   - sklearn/pipeline: named-step pipeline
//   - predict: prediction service client and prediction history
//   - dashboard: overview, analytics and prediction pages
//   - core/model, core/artifact, core/parallel: estimator state, artifact storage, parallel loops
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Metrics
//
// The model is fitted on ln(MEDV). R² is reported on that log scale while
// RMSE and MAE are reported in price units after exponentiation.
package houseprice
