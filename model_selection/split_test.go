package model_selection

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func makeData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*10))
		y.Set(i, 0, float64(i*100))
	}
	return X, y
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		testSize  float64
		wantTrain int
		wantTest  int
	}{
		{n: 545, testSize: 0.2, wantTrain: 436, wantTest: 109},
		{n: 100, testSize: 0.2, wantTrain: 80, wantTest: 20},
		{n: 3, testSize: 0.2, wantTrain: 2, wantTest: 1},
		{n: 10, testSize: 0.25, wantTrain: 7, wantTest: 3},
	}
	for _, tt := range tests {
		X, y := makeData(tt.n)
		XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, y, tt.testSize, 42)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", tt.n, err)
		}
		if r, _ := XTrain.Dims(); r != tt.wantTrain {
			t.Errorf("n=%d: train rows = %d, want %d", tt.n, r, tt.wantTrain)
		}
		if r, _ := XTest.Dims(); r != tt.wantTest {
			t.Errorf("n=%d: test rows = %d, want %d", tt.n, r, tt.wantTest)
		}
		if r, _ := yTrain.Dims(); r != tt.wantTrain {
			t.Errorf("n=%d: yTrain rows = %d, want %d", tt.n, r, tt.wantTrain)
		}
		if r, _ := yTest.Dims(); r != tt.wantTest {
			t.Errorf("n=%d: yTest rows = %d, want %d", tt.n, r, tt.wantTest)
		}
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := makeData(50)
	a, _, _, _, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, _, _, _, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(a, b) {
		t.Error("same seed produced different partitions")
	}

	c, _, _, _, err := TrainTestSplit(X, y, 0.2, 7)
	if err != nil {
		t.Fatal(err)
	}
	if mat.Equal(a, c) {
		t.Error("different seeds produced identical partitions")
	}
}

func TestTrainTestSplit_PartitionsCoverAllRows(t *testing.T) {
	X, y := makeData(20)
	XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[float64]bool)
	check := func(Xp, yp *mat.Dense) {
		r, _ := Xp.Dims()
		for i := 0; i < r; i++ {
			id := Xp.At(i, 0)
			if seen[id] {
				t.Errorf("row %v appears twice", id)
			}
			seen[id] = true
			// rows stay aligned with their targets
			if Xp.At(i, 1) != id*10 || yp.At(i, 0) != id*100 {
				t.Errorf("row %v misaligned", id)
			}
		}
	}
	check(XTrain, yTrain)
	check(XTest, yTest)
	if len(seen) != 20 {
		t.Errorf("covered %d rows, want 20", len(seen))
	}
}

func TestTrainTestSplit_Errors(t *testing.T) {
	X, y := makeData(10)
	_, yShort := makeData(9)
	Xone, yone := makeData(1)

	tests := []struct {
		name     string
		X, y     *mat.Dense
		testSize float64
	}{
		{"row mismatch", X, yShort, 0.2},
		{"zero test size", X, y, 0},
		{"test size one", X, y, 1},
		{"single row", Xone, yone, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, _, err := TrainTestSplit(tt.X, tt.y, tt.testSize, 42); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, _, _, _, err := TrainTestSplit(X, yShort, 0.2, 42)
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %T", err)
	}
}
