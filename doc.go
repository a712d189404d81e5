// Package houseprice predicts house prices from five property features with
// a random forest regressor and serves the predictions through a small web
// dashboard.
//
// The module is split into two programs that share one model artifact:
//
//   - cmd/train reads data/house_data.csv, holds out 20% of the rows, fits a
//     300-tree forest, prints R², MAE and RMSE on the held-out rows and
//     writes the artifact to models/house_price_model.pkl.
//   - cmd/dashboard loads the artifact and the dataset, answers predictions
//     for slider inputs and renders price, area and correlation charts.
//
// # Features
//
// The model uses exactly these columns, in this order:
//
//	area, bedrooms, bathrooms, stories, parking
//
// and predicts the price column. The order is fixed by dataset.FeatureColumns
// and checked whenever an artifact is loaded.
//
// # Quick Start
//
//	go run ./cmd/train
//	go run ./cmd/dashboard
//
// Both programs read config.yaml and .env from the working directory when
// present; see package config for the HOUSEPRICE_* overrides.
//
// # Library use
//
//	ds, err := dataset.Load("data/house_data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	X, y := ds.Features(), ds.Target()
//	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(X, y, 0.2, 42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	forest := ensemble.NewRandomForestRegressor(
//	    ensemble.WithNEstimators(300),
//	    ensemble.WithRandomState(42),
//	)
//	if err := forest.Fit(XTrain, yTrain); err != nil {
//	    log.Fatal(err)
//	}
//	score, _ := forest.Score(XTest, yTest)
//
// Errors carry stack traces (github.com/cockroachdb/errors) and the typed
// errors in pkg/errors can be matched with errors.As.
package houseprice
