package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/dashboard"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/predict"
	"github.com/YuminosukeSato/houseprice/training"
)

const (
	// Global flags.
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagRoot     = "root"

	// Command flags.
	flagCharts  = "charts"
	flagFeature = "feature"
	flagURL     = "url"
	flagTimeout = "timeout"
	flagClear   = "clear"
	flagExport  = "export"

	defaultExport = "house_price_predictions.csv"
)

// env is what every command needs, built once in Before.
type env struct {
	cfg    config.Config
	store  artifact.Store
	logger log.Logger
	out    io.Writer
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{out: stdout}

	return &cli.App{
		Name:      "houseprice",
		Usage:     "train and explore the Boston house price model",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  flagRoot,
				Usage: "resolve artifact paths against `DIR`",
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Default()
			if path := c.String(flagConfig); path != "" {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if lvl := c.String(flagLogLevel); lvl != "" {
				cfg.LogLevel = lvl
			}
			level, err := log.ToLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}

			e.cfg = cfg
			e.store = artifact.NewFileStore(c.String(flagRoot))
			e.logger = log.NewZerologProviderWithWriter(stderr, level).GetLoggerWithName("houseprice")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "train",
				Usage: "prepare the dataset, fit the model and write the artifacts",
				Action: func(c *cli.Context) error {
					result, err := training.Run(c.Context, e.cfg, e.store, e.logger)
					if err != nil {
						return err
					}
					e.printf("Run %s\n", result.RunID)
					e.printf("Test R²: %.4f  Test RMSE: %.2f  Test MAE: %.2f\n",
						result.Metrics.TestR2, result.Metrics.TestRMSE, result.Metrics.TestMAE)
					return nil
				},
			},
			{
				Name:  "overview",
				Usage: "show dataset size, feature descriptions and sample rows",
				Flags: []cli.Flag{chartsFlag()},
				Action: func(c *cli.Context) error {
					return e.dashboard(c).Overview()
				},
			},
			{
				Name:  "analytics",
				Usage: "describe a feature, show correlations and model performance",
				Flags: []cli.Flag{
					chartsFlag(),
					&cli.StringFlag{
						Name:  flagFeature,
						Usage: "feature to describe (default: the first configured feature)",
					},
				},
				Action: func(c *cli.Context) error {
					return e.dashboard(c).Analytics(c.String(flagFeature))
				},
			},
			{
				Name:  "predict",
				Usage: "send the form values to the prediction service",
				Flags: predictFlags(),
				Action: func(c *cli.Context) error {
					return e.predict(c)
				},
			},
			{
				Name:  "history",
				Usage: "show, export or clear the prediction history",
				Flags: []cli.Flag{
					chartsFlag(),
					&cli.BoolFlag{
						Name:  flagClear,
						Usage: "delete every stored prediction",
					},
					&cli.StringFlag{
						Name:  flagExport,
						Usage: "write the history as CSV to `FILE` (relative to --root)",
					},
				},
				Action: func(c *cli.Context) error {
					return e.history(c)
				},
			},
		},
	}
}

func chartsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagCharts,
		Usage: "write PNG charts to `DIR` (relative to --root)",
	}
}

func predictFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  flagURL,
			Usage: "prediction service base URL (overrides the config file)",
		},
		&cli.DurationFlag{
			Name:  flagTimeout,
			Usage: "request timeout (overrides the config file)",
		},
	}
	for _, f := range dashboard.Fields {
		flags = append(flags, &cli.Float64Flag{
			Name:  f.Name,
			Value: f.Default,
			Usage: f.Label,
		})
	}
	return flags
}

func (e *env) dashboard(c *cli.Context) *dashboard.Dashboard {
	return dashboard.New(e.cfg, e.store, e.out, e.logger).WithCharts(c.String(flagCharts))
}

func (e *env) predict(c *cli.Context) error {
	url := e.cfg.PredictURL
	if c.IsSet(flagURL) {
		url = c.String(flagURL)
	}
	timeout := e.cfg.RequestTimeout
	if c.IsSet(flagTimeout) {
		timeout = c.Duration(flagTimeout)
	}

	input := make(map[string]float64, len(dashboard.Fields))
	for _, f := range dashboard.Fields {
		input[f.Name] = c.Float64(f.Name)
	}

	hist, err := predict.LoadHistory(e.store, e.cfg.Paths.History, dashboard.FieldNames())
	if err != nil {
		return err
	}
	client := predict.NewClient(url, timeout, e.logger)
	if _, err := e.dashboard(c).Predict(c.Context, client, hist, input); err != nil {
		return err
	}
	return predict.SaveHistory(e.store, e.cfg.Paths.History, hist)
}

func (e *env) history(c *cli.Context) error {
	hist, err := predict.LoadHistory(e.store, e.cfg.Paths.History, dashboard.FieldNames())
	if err != nil {
		return err
	}

	if c.Bool(flagClear) {
		hist.Clear()
		if err := predict.SaveHistory(e.store, e.cfg.Paths.History, hist); err != nil {
			return err
		}
		e.logger.Info("Prediction history cleared", log.ArtifactKey, e.cfg.Paths.History)
		e.printf("Prediction history cleared.\n")
		return nil
	}

	d := e.dashboard(c)
	if c.IsSet(flagExport) {
		key := c.String(flagExport)
		if key == "" {
			key = defaultExport
		}
		return d.ExportHistory(hist, key)
	}
	return d.History(hist)
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}
