// Package artifact persists the fitted price model together with the
// schema and metrics it was trained with.
package artifact

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/sklearn/ensemble"
)

// FormatVersion is bumped whenever the encoded layout changes.
const FormatVersion = 1

// Artifact is the unit written by the trainer and read by the dashboard.
type Artifact struct {
	Version   int
	ID        uuid.UUID
	CreatedAt time.Time
	Features  []string
	Target    string
	Model     *ensemble.RandomForestRegressor
	Metrics   metrics.RegressionReport
}

// New wraps a fitted forest with the current feature schema.
func New(forest *ensemble.RandomForestRegressor, report metrics.RegressionReport) *Artifact {
	return &Artifact{
		Version:   FormatVersion,
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Features:  append([]string(nil), dataset.FeatureColumns...),
		Target:    dataset.TargetColumn,
		Model:     forest,
		Metrics:   report,
	}
}

// Save writes the artifact to path, replacing any existing file.
func (a *Artifact) Save(path string) error {
	if err := a.validate(); err != nil {
		return err
	}
	if err := model.SaveModel(a, path); err != nil {
		return errors.Wrapf(err, "save artifact %s", path)
	}
	return nil
}

// Load reads and validates the artifact at path.
func Load(path string) (*Artifact, error) {
	a := &Artifact{}
	if err := model.LoadModel(a, path); err != nil {
		return nil, errors.Wrapf(err, "load artifact %s", path)
	}
	if err := a.validate(); err != nil {
		return nil, errors.Wrapf(err, "load artifact %s", path)
	}
	return a, nil
}

// validate checks the artifact matches the schema this build predicts with.
func (a *Artifact) validate() error {
	if a.Version != FormatVersion {
		return errors.NewModelError("artifact", "unsupported format version",
			fmt.Errorf("got %d, want %d", a.Version, FormatVersion))
	}
	if a.Model == nil || !a.Model.IsFitted() {
		return errors.NewNotFittedError("RandomForestRegressor", "Save")
	}
	if a.Target != dataset.TargetColumn {
		return errors.NewModelError("artifact", "target mismatch",
			fmt.Errorf("got %q, want %q", a.Target, dataset.TargetColumn))
	}
	if len(a.Features) != len(dataset.FeatureColumns) {
		return errors.NewDimensionError("artifact", len(dataset.FeatureColumns), len(a.Features), 1)
	}
	for i, name := range dataset.FeatureColumns {
		if a.Features[i] != name {
			return errors.NewModelError("artifact", "feature order mismatch",
				fmt.Errorf("position %d is %q, want %q", i, a.Features[i], name))
		}
	}
	if n := a.Model.NFeatures(); n != len(a.Features) {
		return errors.NewDimensionError("artifact", len(a.Features), n, 1)
	}
	return nil
}
