package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/sklearn/ensemble"
)

func fittedForest(t *testing.T, nFeatures int) *ensemble.RandomForestRegressor {
	t.Helper()
	X := mat.NewDense(4, nFeatures, nil)
	y := mat.NewDense(4, 1, []float64{500000, 700000, 900000, 1300000})
	for i := 0; i < 4; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, float64((i+1)*(j+1)))
		}
	}
	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(5), ensemble.WithRandomState(42))
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	return rf
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "house_price_model.pkl")
	report := metrics.RegressionReport{R2: 0.61, MAE: 120000, MSE: 2.5e10, RMSE: 158113.88, N: 109}

	a := New(fittedForest(t, 5), report)
	if err := a.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != a.ID || !loaded.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("identity changed: %v/%v vs %v/%v", loaded.ID, loaded.CreatedAt, a.ID, a.CreatedAt)
	}
	if loaded.Metrics != report {
		t.Errorf("Metrics = %+v, want %+v", loaded.Metrics, report)
	}

	row := mat.NewDense(1, 5, []float64{2000, 3, 2, 1, 1})
	want, _ := a.Model.Predict(row)
	got, err := loaded.Model.Predict(row)
	if err != nil {
		t.Fatal(err)
	}
	if want.At(0, 0) != got.At(0, 0) {
		t.Errorf("loaded prediction %v, want %v", got.At(0, 0), want.At(0, 0))
	}
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl")
	first := New(fittedForest(t, 5), metrics.RegressionReport{})
	second := New(fittedForest(t, 5), metrics.RegressionReport{})
	if err := first.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := second.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != second.ID {
		t.Error("second save did not replace the first")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in the directory, found %d entries", len(entries))
	}
}

func TestSave_RejectsUnfitted(t *testing.T) {
	a := New(ensemble.NewRandomForestRegressor(), metrics.RegressionReport{})
	err := a.Save(filepath.Join(t.TempDir(), "model.pkl"))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.pkl")); err == nil {
		t.Error("expected error for missing file")
	}

	corrupt := filepath.Join(dir, "corrupt.pkl")
	if err := os.WriteFile(corrupt, []byte("not an artifact"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(corrupt); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestLoad_SchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl")

	a := New(fittedForest(t, 5), metrics.RegressionReport{})
	a.Features = []string{"bedrooms", "area", "bathrooms", "stories", "parking"}
	if err := a.Save(path); err == nil {
		t.Error("expected Save to reject reordered features")
	}

	b := New(fittedForest(t, 4), metrics.RegressionReport{})
	var dimErr *errors.DimensionError
	if err := b.Save(path); !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError for a 4-feature model, got %v", err)
	}
}
