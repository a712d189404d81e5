package dashboard

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Slider is one bounded integer input in the sidebar.
type Slider struct {
	Name    string
	Label   string
	Min     int
	Max     int
	Default int
}

// Clamp forces v into [Min, Max].
func (s Slider) Clamp(v int) int {
	return int(errors.ClipValue(float64(v), float64(s.Min), float64(s.Max)))
}

// Sliders lists the inputs in feature order.
var Sliders = []Slider{
	{Name: dataset.ColArea, Label: "Area (sq ft)", Min: 500, Max: 5000, Default: 1500},
	{Name: dataset.ColBedrooms, Label: "Bedrooms", Min: 1, Max: 6, Default: 3},
	{Name: dataset.ColBathrooms, Label: "Bathrooms", Min: 1, Max: 5, Default: 2},
	{Name: dataset.ColStories, Label: "Stories", Min: 1, Max: 4, Default: 1},
	{Name: dataset.ColParking, Label: "Parking Spaces", Min: 0, Max: 4, Default: 1},
}

// Inputs are the slider values of one prediction request.
type Inputs struct {
	Area      int `json:"area"`
	Bedrooms  int `json:"bedrooms"`
	Bathrooms int `json:"bathrooms"`
	Stories   int `json:"stories"`
	Parking   int `json:"parking"`
}

// DefaultInputs returns every slider at its default position.
func DefaultInputs() Inputs {
	var in Inputs
	for _, s := range Sliders {
		*in.field(s.Name) = s.Default
	}
	return in
}

func (in *Inputs) field(name string) *int {
	switch name {
	case dataset.ColArea:
		return &in.Area
	case dataset.ColBedrooms:
		return &in.Bedrooms
	case dataset.ColBathrooms:
		return &in.Bathrooms
	case dataset.ColStories:
		return &in.Stories
	case dataset.ColParking:
		return &in.Parking
	}
	panic(fmt.Sprintf("dashboard: unknown slider %q", name))
}

// Value returns the value of the named slider.
func (in Inputs) Value(name string) int { return *in.field(name) }

// Clamp returns a copy with every value forced into its slider's range.
func (in Inputs) Clamp() Inputs {
	for _, s := range Sliders {
		p := in.field(s.Name)
		*p = s.Clamp(*p)
	}
	return in
}

// ParseInputs reads slider values from form or query values. Missing fields
// take their default, out-of-range values are clamped, and anything that is
// not an integer is a ValidationError.
func ParseInputs(values url.Values) (Inputs, error) {
	in := DefaultInputs()
	for _, s := range Sliders {
		raw := strings.TrimSpace(values.Get(s.Name))
		if raw == "" {
			continue
		}
		v, err := parseInt(raw)
		if err != nil {
			return Inputs{}, errors.NewValidationError(s.Name, "must be an integer", raw)
		}
		*in.field(s.Name) = v
	}
	return in.Clamp(), nil
}

// parseInt accepts integral values written as floats ("3.0") since HTML range
// inputs and JSON clients both produce them.
func parseInt(raw string) (int, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.Newf("not an integer: %q", raw)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errors.Newf("out of range: %q", raw)
	}
	return int(f), nil
}

// FeatureRow returns the values in dataset.FeatureColumns order.
func (in Inputs) FeatureRow() []float64 {
	row := make([]float64, len(dataset.FeatureColumns))
	for i, name := range dataset.FeatureColumns {
		row[i] = float64(in.Value(name))
	}
	return row
}
