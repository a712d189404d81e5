package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

const threeRows = `area,bedrooms,bathrooms,stories,parking,price
1000,2,1,1,1,500000
2000,3,2,1,1,900000
3000,4,2,2,2,1300000
`

func TestRead_ThreeRows(t *testing.T) {
	ds, err := Read(strings.NewReader(threeRows), "inline")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	rows, cols := ds.Shape()
	if rows != 3 || cols != 6 {
		t.Errorf("Shape() = (%d, %d), want (3, 6)", rows, cols)
	}

	X := ds.Features()
	r, c := X.Dims()
	if r != 3 || c != 5 {
		t.Fatalf("Features dims = (%d, %d), want (3, 5)", r, c)
	}
	want := []float64{2000, 3, 2, 1, 1}
	for j, v := range want {
		if X.At(1, j) != v {
			t.Errorf("X[1][%d] = %v, want %v", j, X.At(1, j), v)
		}
	}

	y := ds.Target()
	if y.At(2, 0) != 1300000 {
		t.Errorf("y[2] = %v, want 1300000", y.At(2, 0))
	}
}

func TestRead_ColumnOrderFollowsHeader(t *testing.T) {
	csv := "price,parking,extra,stories,bathrooms,bedrooms,area\n500000,1,x,1,1,2,1000\n"
	ds, err := Read(strings.NewReader(csv), "reordered")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	got := ds.Records()[0]
	want := Record{Area: 1000, Bedrooms: 2, Bathrooms: 1, Stories: 1, Parking: 1, Price: 500000}
	if got != want {
		t.Errorf("record = %+v, want %+v", got, want)
	}
}

func TestRead_MissingPriceColumn(t *testing.T) {
	csv := "area,bedrooms,bathrooms,stories,parking\n1000,2,1,1,1\n"
	_, err := Read(strings.NewReader(csv), "no-price.csv")

	var schemaErr *errors.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != ColPrice {
		t.Errorf("Missing = %v, want [price]", schemaErr.Missing)
	}
}

func TestRead_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "non-numeric cell", csv: "area,bedrooms,bathrooms,stories,parking,price\n1000,two,1,1,1,500000\n"},
		{name: "empty cell", csv: "area,bedrooms,bathrooms,stories,parking,price\n1000,2,1,1,1,\n"},
		{name: "short row", csv: "area,bedrooms,bathrooms,stories,parking,price\n1000,2,1\n"},
		{name: "NaN value", csv: "area,bedrooms,bathrooms,stories,parking,price\nNaN,2,1,1,1,500000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.csv), "bad.csv")
			var valErr *errors.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestRead_Empty(t *testing.T) {
	if _, err := Read(strings.NewReader(""), "empty.csv"); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData for empty input, got %v", err)
	}
	header := "area,bedrooms,bathrooms,stories,parking,price\n"
	if _, err := Read(strings.NewReader(header), "header-only.csv"); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData for header-only input, got %v", err)
	}
}

func TestRead_FractionalCountWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	csv := "area,bedrooms,bathrooms,stories,parking,price\n1000,2.5,1,1,1,500000\n1100,2.5,1,1,1,510000\n"
	if _, err := Read(strings.NewReader(csv), "fractional.csv"); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning per column, got %d", len(warnings))
	}
	var w *errors.DataConversionWarning
	if !errors.As(warnings[0], &w) {
		t.Errorf("expected DataConversionWarning, got %T", warnings[0])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "house_data.csv")
	if err := os.WriteFile(path, []byte(threeRows), 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ds.Source() != path || ds.Len() != 3 {
		t.Errorf("Source=%q Len=%d", ds.Source(), ds.Len())
	}
	if len(ds.Head(5)) != 3 {
		t.Errorf("Head(5) should be capped at row count")
	}
}

func TestCorrelation(t *testing.T) {
	ds, err := Read(strings.NewReader(threeRows), "inline")
	if err != nil {
		t.Fatal(err)
	}

	corr, names := ds.Correlation()
	if len(names) != 6 {
		t.Fatalf("names = %v", names)
	}
	n, _ := corr.Dims()
	if n != 6 {
		t.Fatalf("dims = %d, want 6", n)
	}

	idx := func(name string) int {
		for i, v := range names {
			if v == name {
				return i
			}
		}
		t.Fatalf("column %s not found", name)
		return -1
	}

	// area and price are perfectly linear in this data.
	if got := corr.At(idx(ColArea), idx(ColPrice)); math.Abs(got-1) > 1e-12 {
		t.Errorf("corr(area, price) = %v, want 1", got)
	}
	for i := 0; i < n; i++ {
		if corr.At(i, i) != 1 {
			t.Errorf("diag[%d] = %v, want 1", i, corr.At(i, i))
		}
		for j := 0; j < n; j++ {
			if corr.At(i, j) != corr.At(j, i) {
				t.Errorf("corr not symmetric at (%d, %d)", i, j)
			}
			if v := corr.At(i, j); v < -1-1e-12 || v > 1+1e-12 {
				t.Errorf("corr(%d, %d) = %v out of [-1, 1]", i, j, v)
			}
		}
	}
}

func TestColumnUnknown(t *testing.T) {
	ds, err := New([]Record{{Area: 1, Price: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ds.Column("garage"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestDescribe(t *testing.T) {
	ds, err := Read(strings.NewReader(threeRows), "inline")
	if err != nil {
		t.Fatal(err)
	}
	summaries := ds.Describe()
	if len(summaries) != len(Columns) {
		t.Fatalf("got %d summaries", len(summaries))
	}
	price := summaries[len(summaries)-1]
	if price.Column != ColPrice || price.Min != 500000 || price.Max != 1300000 || price.Mean != 900000 {
		t.Errorf("price summary = %+v", price)
	}
}
