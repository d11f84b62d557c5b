package core

import (
	"bytes"
	"fmt"
	"iter"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// maxChartSeries is how many numeric columns a chart shows.
const maxChartSeries = 2

// Series is a read-only, row-indexed view of one numeric column. It holds
// no copy of the data; every traversal reads the column again.
type Series struct {
	Name string
	col  *Column
}

// Len returns the number of rows, missing ones included.
func (s Series) Len() int { return len(s.col.Cells) }

// At returns the value at row i and whether it is present.
func (s Series) At(i int) (float64, bool) {
	return s.col.Cells[i].Float()
}

// Points yields (row index, value) for every present value, in row order.
// The sequence can be ranged over any number of times.
func (s Series) Points() iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for i := range s.col.Cells {
			v, ok := s.At(i)
			if !ok {
				continue
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// Projection is the chart-ready view of a Dataset: its first one or two
// numeric columns.
type Projection struct {
	Series []Series
}

// Project selects the first two numeric columns in current column order.
// ok is false when the Dataset has no numeric column; that is a "not
// applicable" outcome rather than an error.
func Project(ds *Dataset) (*Projection, bool) {
	p := &Projection{}
	for _, col := range ds.columns {
		if col.Type != TypeNumeric {
			continue
		}
		p.Series = append(p.Series, Series{Name: col.Name, col: col})
		if len(p.Series) == maxChartSeries {
			break
		}
	}
	if len(p.Series) == 0 {
		return nil, false
	}
	return p, true
}

// ChartFormat is the image encoding of a rendered chart.
type ChartFormat string

const (
	ChartSVG ChartFormat = "svg"
	ChartPNG ChartFormat = "png"
)

// ContentType returns the MIME type of the chart encoding.
func (f ChartFormat) ContentType() string {
	if f == ChartPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// ChartOptions controls chart rendering.
type ChartOptions struct {
	Title  string
	Width  int
	Height int
	Format ChartFormat
}

var seriesColors = []drawing.Color{chart.ColorBlue, chart.ColorGreen}

// RenderChart draws the projection as one line-and-dot series per column
// against the row index. Missing values are skipped. It returns
// ErrNoNumericColumns when no series has a single present value.
func RenderChart(p *Projection, opts ChartOptions) ([]byte, error) {
	if p == nil {
		return nil, ErrNoNumericColumns
	}

	var (
		series                 []chart.Series
		xMin, xMax, yMin, yMax = math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	)
	for i, s := range p.Series {
		var xs, ys []float64
		for row, v := range s.Points() {
			xs = append(xs, float64(row))
			ys = append(ys, v)
			xMin, xMax = math.Min(xMin, float64(row)), math.Max(xMax, float64(row))
			yMin, yMax = math.Min(yMin, v), math.Max(yMax, v)
		}
		if len(xs) == 0 {
			continue
		}
		color := seriesColors[i%len(seriesColors)]
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}
	if len(series) == 0 {
		return nil, ErrNoNumericColumns
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  chart.XAxis{Name: "row", Range: paddedRange(xMin, xMax)},
		YAxis:  chart.YAxis{Range: paddedRange(yMin, yMax)},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	renderer := chart.SVG
	if opts.Format == ChartPNG {
		renderer = chart.PNG
	}

	var buf bytes.Buffer
	if err := graph.Render(renderer, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedRange widens a degenerate range; go-chart rejects a zero-width axis.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}
