// Package dataset loads the housing CSV and exposes it as gonum matrices.
//
// Column order matters: FeatureColumns is the order the model is trained on
// and the order every prediction row must use.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	ColArea      = "area"
	ColBedrooms  = "bedrooms"
	ColBathrooms = "bathrooms"
	ColStories   = "stories"
	ColParking   = "parking"
	ColPrice     = "price"

	// TargetColumn is the label the model predicts.
	TargetColumn = ColPrice
)

// FeatureColumns is the model's feature order.
var FeatureColumns = []string{ColArea, ColBedrooms, ColBathrooms, ColStories, ColParking}

// Columns lists every required column: the features followed by the target.
var Columns = append(append([]string{}, FeatureColumns...), TargetColumn)

// countColumns hold integer counts; fractional values are accepted with a warning.
var countColumns = map[string]bool{
	ColBedrooms:  true,
	ColBathrooms: true,
	ColStories:   true,
	ColParking:   true,
}

// Record is one housing row.
type Record struct {
	Area      float64
	Bedrooms  float64
	Bathrooms float64
	Stories   float64
	Parking   float64
	Price     float64
}

// Features returns the record's feature values in FeatureColumns order.
func (r Record) Features() []float64 {
	return []float64{r.Area, r.Bedrooms, r.Bathrooms, r.Stories, r.Parking}
}

// Value returns the value of the named column.
func (r Record) Value(column string) (float64, error) {
	switch column {
	case ColArea:
		return r.Area, nil
	case ColBedrooms:
		return r.Bedrooms, nil
	case ColBathrooms:
		return r.Bathrooms, nil
	case ColStories:
		return r.Stories, nil
	case ColParking:
		return r.Parking, nil
	case ColPrice:
		return r.Price, nil
	}
	return 0, errors.NewValidationError("column", "unknown column", column)
}

func (r *Record) set(column string, v float64) {
	switch column {
	case ColArea:
		r.Area = v
	case ColBedrooms:
		r.Bedrooms = v
	case ColBathrooms:
		r.Bathrooms = v
	case ColStories:
		r.Stories = v
	case ColParking:
		r.Parking = v
	case ColPrice:
		r.Price = v
	}
}

// Dataset is an immutable, fully loaded set of housing records.
type Dataset struct {
	source  string
	records []Record
}

// Load reads the CSV file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses CSV from r. source names the input in error messages.
//
// The header decides column positions, so columns may come in any order and
// extra columns are ignored. Every required column must be present, and every
// row must carry a finite numeric value in each of them.
func Read(r io.Reader, source string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s has no header", source)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", source)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewSchemaError(source, missing)
	}

	var records []Record
	converted := make(map[string]bool)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", source)
		}

		var rec Record
		for _, col := range Columns {
			pos := index[col]
			if pos >= len(row) {
				return nil, errors.NewValidationError(col, fmt.Sprintf("missing value on line %d", line), "")
			}
			raw := strings.TrimSpace(row[pos])
			v, perr := strconv.ParseFloat(raw, 64)
			if perr != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewValidationError(col, fmt.Sprintf("non-numeric value on line %d", line), raw)
			}
			if countColumns[col] && v != math.Trunc(v) && !converted[col] {
				converted[col] = true
				errors.Warn(errors.NewDataConversionWarning("float64", "count",
					fmt.Sprintf("column %q has fractional value %v on line %d", col, v, line)))
			}
			rec.set(col, v)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s has no rows", source)
	}
	return &Dataset{source: source, records: records}, nil
}

// New builds a Dataset from in-memory records. The slice is copied.
func New(records []Record) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errors.ErrEmptyData
	}
	return &Dataset{source: "memory", records: append([]Record(nil), records...)}, nil
}

// Source is the path (or label) the dataset was read from.
func (d *Dataset) Source() string { return d.source }

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.records) }

// Shape returns (rows, columns) over the required columns.
func (d *Dataset) Shape() (int, int) { return len(d.records), len(Columns) }

// Records returns a copy of all rows.
func (d *Dataset) Records() []Record {
	return append([]Record(nil), d.records...)
}

// Head returns a copy of the first n rows.
func (d *Dataset) Head(n int) []Record {
	if n > len(d.records) {
		n = len(d.records)
	}
	return append([]Record(nil), d.records[:n]...)
}

// Features returns the n×5 feature matrix in FeatureColumns order.
func (d *Dataset) Features() *mat.Dense {
	X := mat.NewDense(len(d.records), len(FeatureColumns), nil)
	for i, rec := range d.records {
		X.SetRow(i, rec.Features())
	}
	return X
}

// Target returns the n×1 price column.
func (d *Dataset) Target() *mat.Dense {
	y := mat.NewDense(len(d.records), 1, nil)
	for i, rec := range d.records {
		y.Set(i, 0, rec.Price)
	}
	return y
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) ([]float64, error) {
	out := make([]float64, len(d.records))
	for i, rec := range d.records {
		v, err := rec.Value(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
