// Package trainer runs the offline job that fits the price model and writes
// the artifact the dashboard serves.
package trainer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/YuminosukeSato/houseprice/artifact"
	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/model_selection"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/sklearn/ensemble"
)

// headRows is how many dataset rows are echoed before training.
const headRows = 5

// Report summarizes a finished run.
type Report struct {
	ArtifactID   string
	ModelPath    string
	TrainSamples int
	TestSamples  int
	Metrics      metrics.RegressionReport
}

// Run loads the dataset, fits the forest on the training partition, prints
// held-out metrics to out and saves the artifact. Nothing is written to
// cfg.ModelPath unless every earlier step succeeds.
func Run(cfg config.Trainer, out io.Writer, logger log.Logger) (*Report, error) {
	logger = logger.With(log.ComponentKey, "trainer")
	start := time.Now()

	ds, err := dataset.Load(cfg.DataPath)
	if err != nil {
		return nil, errors.Wrap(err, "load dataset")
	}
	rows, cols := ds.Shape()
	logger.Info("Dataset loaded.", log.PathKey, cfg.DataPath, log.SamplesKey, rows)
	if logger.Enabled(context.Background(), log.LevelDebug) {
		for _, s := range ds.Describe() {
			logger.Debug("Column summary.", "column", s.Column, "mean", s.Mean, "std", s.StdDev, "min", s.Min, "max", s.Max)
		}
	}

	fmt.Fprintf(out, "Data shape: (%d, %d)\n", rows, cols)
	if err := printHead(out, ds.Head(headRows)); err != nil {
		return nil, errors.Wrap(err, "print dataset head")
	}

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(ds.Features(), ds.Target(), cfg.TestSize, cfg.RandomState)
	if err != nil {
		return nil, errors.Wrap(err, "split dataset")
	}
	nTrain, _ := XTrain.Dims()
	nTest, _ := XTest.Dims()
	fmt.Fprintf(out, "Training samples: %d, Test samples: %d\n", nTrain, nTest)

	forest := ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(cfg.NEstimators),
		ensemble.WithRandomState(cfg.RandomState),
		ensemble.WithNJobs(cfg.NJobs),
		ensemble.WithLogger(logger),
	)
	if err := forest.Fit(XTrain, yTrain); err != nil {
		return nil, errors.Wrap(err, "fit model")
	}

	pred, err := forest.Predict(XTest)
	if err != nil {
		return nil, errors.Wrap(err, "predict test partition")
	}
	report, err := metrics.Evaluate(yTest, pred)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate model")
	}
	fmt.Fprintf(out, "R2: %.3f, MAE: %.2f, RMSE: %.2f\n", report.R2, report.MAE, report.RMSE)
	logger.Info("Model evaluated.",
		log.PhaseKey, log.PhaseTesting,
		log.SamplesKey, nTest,
		log.R2ScoreKey, report.R2,
		log.MAEKey, report.MAE,
		log.RMSEKey, report.RMSE,
	)

	a := artifact.New(forest, report)
	if err := a.Save(cfg.ModelPath); err != nil {
		return nil, errors.Wrap(err, "save model")
	}
	fmt.Fprintln(out, "Model saved successfully!")
	logger.Info("Model saved.",
		log.OperationKey, log.OperationSave,
		log.EstimatorIDKey, a.ID.String(),
		log.PathKey, cfg.ModelPath,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Report{
		ArtifactID:   a.ID.String(),
		ModelPath:    cfg.ModelPath,
		TrainSamples: nTrain,
		TestSamples:  nTest,
		Metrics:      report,
	}, nil
}

// printHead writes records as an indexed table.
func printHead(out io.Writer, records []dataset.Record) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, col := range dataset.Columns {
		fmt.Fprintf(tw, "%s\t", col)
	}
	fmt.Fprintln(tw)
	for i, rec := range records {
		fmt.Fprintf(tw, "%d\t", i)
		for _, col := range dataset.Columns {
			v, _ := rec.Value(col)
			fmt.Fprintf(tw, "%s\t", strconv.FormatFloat(v, 'f', -1, 64))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
