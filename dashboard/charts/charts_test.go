package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/YuminosukeSato/houseprice/dataset"
)

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]dataset.Record{
		{Area: 1000, Bedrooms: 2, Bathrooms: 1, Stories: 1, Parking: 1, Price: 500000},
		{Area: 2000, Bedrooms: 3, Bathrooms: 2, Stories: 1, Parking: 1, Price: 900000},
		{Area: 3000, Bedrooms: 4, Bathrooms: 2, Stories: 2, Parking: 2, Price: 1300000},
		{Area: 4500, Bedrooms: 5, Bathrooms: 4, Stories: 4, Parking: 0, Price: 2100000},
	})
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestBuilders_RenderSVG(t *testing.T) {
	titles := map[string]string{
		NamePriceDistribution:  "Price Distribution",
		NameAreaVsPrice:        "Area vs Price",
		NameFeatureCorrelation: "Feature Correlation",
	}
	ds := sample(t)

	for _, name := range Names {
		build, ok := Builders[name]
		if !ok {
			t.Fatalf("no builder for %s", name)
		}
		p, err := build(ds)
		if err != nil {
			t.Fatalf("%s: build error = %v", name, err)
		}
		if p.Title.Text != titles[name] {
			t.Errorf("%s: title = %q, want %q", name, p.Title.Text, titles[name])
		}

		var buf bytes.Buffer
		if err := Render(&buf, p, Width, Height); err != nil {
			t.Fatalf("%s: render error = %v", name, err)
		}
		if !strings.Contains(buf.String(), "<svg") {
			t.Errorf("%s: output is not SVG", name)
		}
	}
}

func TestPriceHistogram_Bins(t *testing.T) {
	p, err := PriceHistogram(sample(t))
	if err != nil {
		t.Fatal(err)
	}
	if p.X.Label.Text != "Price (₹)" || p.Y.Label.Text != "Count" {
		t.Errorf("axis labels = %q, %q", p.X.Label.Text, p.Y.Label.Text)
	}

	prices, err := sample(t).Column(dataset.ColPrice)
	if err != nil {
		t.Fatal(err)
	}
	hist, err := priceHist(prices)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist.Bins) != histogramBins {
		t.Errorf("bins = %d, want %d", len(hist.Bins), histogramBins)
	}
	total := 0.0
	for _, b := range hist.Bins {
		total += b.Weight
	}
	if total != 4 {
		t.Errorf("histogram counts %v records, want 4", total)
	}
	if hist.FillColor != Accent {
		t.Errorf("fill = %v, want %v", hist.FillColor, Accent)
	}
}

func TestCorrelationGrid_TopRowIsFirstColumn(t *testing.T) {
	corr, names := sample(t).Correlation()
	g := correlationGrid{corr: corr, n: len(names)}

	c, r := g.Dims()
	if c != len(dataset.Columns) || r != len(dataset.Columns) {
		t.Fatalf("Dims() = (%d, %d)", c, r)
	}
	// The highest grid row holds the first matrix row.
	for col := 0; col < c; col++ {
		if g.Z(col, r-1) != corr.At(0, col) {
			t.Errorf("Z(%d, top) = %v, want corr[0][%d] = %v", col, g.Z(col, r-1), col, corr.At(0, col))
		}
	}
}

func TestScaleIndex(t *testing.T) {
	tests := []struct {
		v, lo, hi float64
		want      int
	}{
		{1, 1, 5, 0},
		{5, 1, 5, 6},
		{3, 1, 5, 3},
		{2, 2, 2, 6},
	}
	for _, tt := range tests {
		if got := scaleIndex(tt.v, tt.lo, tt.hi, 7); got != tt.want {
			t.Errorf("scaleIndex(%v, %v, %v) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestFormatCell(t *testing.T) {
	if got := formatCell(0.12345); got != "0.12" {
		t.Errorf("formatCell = %q", got)
	}
}
