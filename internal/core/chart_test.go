package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rows   [][]string
		want   []string
		ok     bool
	}{
		{
			name:   "no numeric columns",
			header: []string{"region", "flag"},
			rows:   [][]string{{"east", "true"}},
			ok:     false,
		},
		{
			name:   "one numeric column",
			header: []string{"region", "amount"},
			rows:   [][]string{{"east", "1"}},
			want:   []string{"amount"},
			ok:     true,
		},
		{
			name:   "first two numeric columns",
			header: []string{"a", "label", "b", "c"},
			rows:   [][]string{{"1", "x", "2", "3"}},
			want:   []string{"a", "b"},
			ok:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Project(NewDataset(tt.header, tt.rows))
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Nil(t, p)
				return
			}
			names := make([]string, len(p.Series))
			for i, s := range p.Series {
				names[i] = s.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSeriesPoints_SkipsMissing(t *testing.T) {
	ds := NewDataset([]string{"v"}, [][]string{{"1"}, {""}, {"3.5"}, {"NA"}})
	p, ok := Project(ds)
	require.True(t, ok)

	s := p.Series[0]
	assert.Equal(t, 4, s.Len())

	var rows []int
	var values []float64
	for i, v := range s.Points() {
		rows = append(rows, i)
		values = append(values, v)
	}
	assert.Equal(t, []int{0, 2}, rows)
	assert.Equal(t, []float64{1, 3.5}, values)

	// The view reads through to the column, so it can be traversed again.
	count := 0
	for range s.Points() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestSeriesPoints_EarlyStop(t *testing.T) {
	ds := NewDataset([]string{"v"}, [][]string{{"1"}, {"2"}, {"3"}})
	p, _ := Project(ds)

	seen := 0
	for range p.Series[0].Points() {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestRenderChart(t *testing.T) {
	ds := NewDataset([]string{"x", "y"}, [][]string{{"1", "10"}, {"2", ""}, {"3", "30"}})
	p, ok := Project(ds)
	require.True(t, ok)

	t.Run("svg", func(t *testing.T) {
		out, err := RenderChart(p, ChartOptions{Title: "data.csv", Width: 640, Height: 360, Format: ChartSVG})
		require.NoError(t, err)
		assert.True(t, bytes.Contains(out, []byte("<svg")))
	})

	t.Run("png", func(t *testing.T) {
		out, err := RenderChart(p, ChartOptions{Width: 320, Height: 200, Format: ChartPNG})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, []byte("\x89PNG")))
	})

	t.Run("single value", func(t *testing.T) {
		one, _ := Project(NewDataset([]string{"v"}, [][]string{{"5"}}))
		_, err := RenderChart(one, ChartOptions{Width: 320, Height: 200, Format: ChartSVG})
		assert.NoError(t, err)
	})
}

func TestRenderChart_NotApplicable(t *testing.T) {
	_, err := RenderChart(nil, ChartOptions{})
	assert.ErrorIs(t, err, ErrNoNumericColumns)

	allMissing, ok := Project(NewDataset([]string{"v"}, [][]string{{""}, {"NA"}}))
	require.True(t, ok, "an all-missing column is numeric")
	_, err = RenderChart(allMissing, ChartOptions{Width: 320, Height: 200})
	assert.ErrorIs(t, err, ErrNoNumericColumns)
}

func TestChartFormatContentType(t *testing.T) {
	assert.Equal(t, "image/svg+xml", ChartSVG.ContentType())
	assert.Equal(t, "image/png", ChartPNG.ContentType())
}
