// Package charts draws the dashboard's data insight charts with gonum/plot.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Builder draws one chart from the dataset.
type Builder func(ds *dataset.Dataset) (*plot.Plot, error)

// Chart names as used in URLs.
const (
	NamePriceDistribution  = "price-distribution"
	NameAreaVsPrice        = "area-vs-price"
	NameFeatureCorrelation = "feature-correlation"
)

// Names lists the charts in page order.
var Names = []string{NamePriceDistribution, NameAreaVsPrice, NameFeatureCorrelation}

// Builders maps chart names to their builders.
var Builders = map[string]Builder{
	NamePriceDistribution:  PriceHistogram,
	NameAreaVsPrice:        AreaPriceScatter,
	NameFeatureCorrelation: CorrelationHeatmap,
}

// Default SVG canvas size.
const (
	Width  = 8 * vg.Inch
	Height = 4.5 * vg.Inch
)

const histogramBins = 20

// Accent is the bar colour of the price histogram (#10b981).
var Accent = color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}

// Teal is a light-to-dark sequential scale for the scatter colour channel.
var Teal = customPalette{
	color.RGBA{R: 209, G: 238, B: 234, A: 255},
	color.RGBA{R: 168, G: 219, B: 217, A: 255},
	color.RGBA{R: 133, G: 196, B: 201, A: 255},
	color.RGBA{R: 104, G: 171, B: 184, A: 255},
	color.RGBA{R: 79, G: 144, B: 166, A: 255},
	color.RGBA{R: 59, G: 117, B: 143, A: 255},
	color.RGBA{R: 42, G: 86, B: 116, A: 255},
}

type customPalette []color.Color

func (p customPalette) Colors() []color.Color { return p }

var _ palette.Palette = Teal

// PriceHistogram is a 20-bin histogram of sale prices.
func PriceHistogram(ds *dataset.Dataset) (*plot.Plot, error) {
	prices, err := ds.Column(dataset.ColPrice)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Price Distribution"
	p.X.Label.Text = "Price (₹)"
	p.Y.Label.Text = "Count"
	p.X.Tick.Marker = plot.TickerFunc(plainTicks)

	h, err := priceHist(prices)
	if err != nil {
		return nil, err
	}
	p.Add(h)
	return p, nil
}

func priceHist(prices []float64) (*plotter.Histogram, error) {
	h, err := plotter.NewHist(plotter.Values(prices), histogramBins)
	if err != nil {
		return nil, errors.Wrap(err, "build price histogram")
	}
	h.FillColor = Accent
	// White outlines separate neighbouring bars.
	h.LineStyle.Color = color.White
	h.LineStyle.Width = vg.Points(1.5)
	return h, nil
}

// AreaPriceScatter plots price against area. Glyph size follows bedrooms and
// colour follows bathrooms; the legend explains both encodings.
func AreaPriceScatter(ds *dataset.Dataset) (*plot.Plot, error) {
	records := ds.Records()
	xys := make(plotter.XYs, len(records))
	minBath, maxBath := math.Inf(1), math.Inf(-1)
	for i, r := range records {
		xys[i].X = r.Area
		xys[i].Y = r.Price
		minBath = math.Min(minBath, r.Bathrooms)
		maxBath = math.Max(maxBath, r.Bathrooms)
	}

	p := plot.New()
	p.Title.Text = "Area vs Price"
	p.X.Label.Text = dataset.ColArea
	p.Y.Label.Text = dataset.ColPrice
	p.Y.Tick.Marker = plot.TickerFunc(plainTicks)
	p.Legend.Top = true

	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, errors.Wrap(err, "build area/price scatter")
	}
	colors := Teal.Colors()
	colorOf := func(bathrooms float64) color.Color {
		return colors[scaleIndex(bathrooms, minBath, maxBath, len(colors))]
	}
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  colorOf(records[i].Bathrooms),
			Radius: bedroomRadius(records[i].Bedrooms),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(s)

	for _, b := range distinct(records, func(r dataset.Record) float64 { return r.Bedrooms }) {
		entry, err := legendGlyph(draw.GlyphStyle{
			Color:  color.Gray{Y: 0x80},
			Radius: bedroomRadius(b),
			Shape:  draw.RingGlyph{},
		})
		if err != nil {
			return nil, err
		}
		p.Legend.Add(fmt.Sprintf("%g bedrooms", b), entry)
	}
	for _, b := range distinct(records, func(r dataset.Record) float64 { return r.Bathrooms }) {
		entry, err := legendGlyph(draw.GlyphStyle{
			Color:  colorOf(b),
			Radius: vg.Points(4),
			Shape:  draw.BoxGlyph{},
		})
		if err != nil {
			return nil, err
		}
		p.Legend.Add(fmt.Sprintf("%g bathrooms", b), entry)
	}
	return p, nil
}

func bedroomRadius(bedrooms float64) vg.Length {
	return vg.Points(1.5 + math.Max(bedrooms, 0))
}

// scaleIndex maps v in [lo, hi] onto [0, n).
func scaleIndex(v, lo, hi float64, n int) int {
	if hi <= lo {
		return n - 1
	}
	i := int((v - lo) / (hi - lo) * float64(n-1))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func distinct(records []dataset.Record, value func(dataset.Record) float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range records {
		v := value(r)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// legendGlyph returns an empty scatter whose thumbnail shows style.
func legendGlyph(style draw.GlyphStyle) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(plotter.XYs{})
	if err != nil {
		return nil, errors.Wrap(err, "build legend entry")
	}
	s.GlyphStyle = style
	return s, nil
}

// CorrelationHeatmap shows the Pearson correlation of every column pair with
// each cell annotated to two decimals. The first column is drawn on top.
func CorrelationHeatmap(ds *dataset.Dataset) (*plot.Plot, error) {
	corr, names := ds.Correlation()
	n := len(names)

	pal, err := brewer.GetPalette(brewer.TypeSequential, "YlGnBu", 9)
	if err != nil {
		return nil, errors.Wrap(err, "load YlGnBu palette")
	}

	grid := correlationGrid{corr: corr, n: n}
	hm := plotter.NewHeatMap(grid, pal)
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 0xe0}

	p := plot.New()
	p.Title.Text = "Feature Correlation"
	p.Add(hm)

	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, n*n),
		Labels: make([]string, 0, n*n),
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			labels.Labels = append(labels.Labels, formatCell(grid.Z(c, r)))
		}
	}
	annotations, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, errors.Wrap(err, "build heatmap annotations")
	}
	for i := range annotations.TextStyle {
		annotations.TextStyle[i].XAlign = text.XCenter
		annotations.TextStyle[i].YAlign = text.YCenter
		annotations.TextStyle[i].Font.Size = vg.Points(9)
		// Dark cells get light text.
		if v := grid.Z(i%n, i/n); !math.IsNaN(v) && v > 0.5 {
			annotations.TextStyle[i].Color = color.White
		}
	}
	p.Add(annotations)

	p.NominalX(names...)
	reversed := make([]string, n)
	for i, name := range names {
		reversed[n-1-i] = name
	}
	p.NominalY(reversed...)
	return p, nil
}

// correlationGrid exposes a correlation matrix as a heat map grid with
// row 0 of the matrix at the top.
type correlationGrid struct {
	corr interface{ At(i, j int) float64 }
	n    int
}

func (g correlationGrid) Dims() (c, r int)   { return g.n, g.n }
func (g correlationGrid) Z(c, r int) float64 { return g.corr.At(g.n-1-r, c) }
func (g correlationGrid) X(c int) float64    { return float64(c) }
func (g correlationGrid) Y(r int) float64    { return float64(r) }

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}

// plainTicks labels large values without exponent notation.
func plainTicks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = fmt.Sprintf("%.0f", ticks[i].Value)
		}
	}
	return ticks
}

// Render writes p to w as an SVG document.
func Render(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return errors.Wrap(err, "create svg canvas")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write svg")
	}
	return nil
}
