// Package dashboard serves price predictions and data charts over HTTP.
package dashboard

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

// Predictor is the fitted model as seen by the dashboard.
type Predictor = model.Predictor

// Prediction is the answer to one Predict request.
type Prediction struct {
	Inputs    Inputs  `json:"features"`
	Price     float64 `json:"price"`
	Formatted string  `json:"formatted"`
}

// Service holds the model and dataset loaded at startup. It is read-only and
// safe for concurrent use.
type Service struct {
	model   Predictor
	data    *dataset.Dataset
	modelID string
	logger  log.Logger
}

// NewService wires a loaded model and dataset. modelID is reported by the
// health endpoint.
func NewService(model Predictor, ds *dataset.Dataset, modelID string, logger log.Logger) (*Service, error) {
	if model == nil {
		return nil, errors.NewValueError("dashboard.NewService", "model is nil")
	}
	if ds == nil {
		return nil, errors.NewValueError("dashboard.NewService", "dataset is nil")
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Service{
		model:   model,
		data:    ds,
		modelID: modelID,
		logger:  logger.With(log.ComponentKey, "dashboard"),
	}, nil
}

// Dataset returns the dataset charts are drawn from.
func (s *Service) Dataset() *dataset.Dataset { return s.data }

// ModelID identifies the loaded artifact.
func (s *Service) ModelID() string { return s.modelID }

// Predict runs the model on exactly one row built from in.
func (s *Service) Predict(in Inputs) (pred Prediction, err error) {
	in = in.Clamp()
	row := in.FeatureRow()
	var out mat.Matrix
	err = errors.SafeExecute("dashboard.Predict", func() (err error) {
		out, err = s.model.Predict(mat.NewDense(1, len(row), row))
		return err
	})
	if err != nil {
		return Prediction{}, errors.NewModelError("dashboard.Predict", "model prediction failed", err)
	}
	if r, c := out.Dims(); r != 1 || c != 1 {
		return Prediction{}, errors.NewModelError("dashboard.Predict", "unexpected output shape",
			errors.NewDimensionError("dashboard.Predict", 1, r*c, 0))
	}
	price := out.At(0, 0)
	if err := errors.CheckFinite("dashboard.Predict", []float64{price}); err != nil {
		return Prediction{}, errors.NewModelError("dashboard.Predict", "non-finite prediction", err)
	}

	s.logger.Debug("Prediction served.",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PriceKey, price,
	)
	return Prediction{Inputs: in, Price: price, Formatted: FormatPrice(price)}, nil
}
