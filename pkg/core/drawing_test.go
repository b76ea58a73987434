package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDrawing(t DrawingType, points int) Drawing {
	d := Drawing{
		ID:         "d1",
		SourceID:   SourceID("BTCUSDT", "1h"),
		Type:       t,
		Properties: DefaultProperties(),
	}
	for i := 0; i < points; i++ {
		d.Points = append(d.Points, Point{Time: int64(i) * 60, Price: float64(100 + i)})
	}
	return d
}

func TestPointCount_CoversEveryType(t *testing.T) {
	for _, typ := range AllTypes() {
		count, variable, err := typ.PointCount()
		require.NoError(t, err, typ)
		require.Positive(t, count, typ)
		require.Equal(t, typ == DrawingBrush, variable, typ)

		require.NoError(t, testDrawing(typ, count).Validate(), typ)
	}

	_, _, err := DrawingType("spiral").PointCount()
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDrawing_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Drawing)
		err    error
	}{
		{"missing id", func(d *Drawing) { d.ID = "" }, ErrInvalidDrawing},
		{"missing source", func(d *Drawing) { d.SourceID = "" }, ErrInvalidDrawing},
		{"missing color", func(d *Drawing) { d.Properties.Color = "" }, ErrInvalidDrawing},
		{"too many points", func(d *Drawing) { d.Points = append(d.Points, Point{}) }, ErrInvalidDrawing},
		{"unknown type", func(d *Drawing) { d.Type = "spiral" }, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDrawing(DrawingTrendline, 2)
			tt.mutate(&d)
			require.ErrorIs(t, d.Validate(), tt.err)
		})
	}

	brush := testDrawing(DrawingBrush, 1)
	require.ErrorIs(t, brush.Validate(), ErrInvalidDrawing)
	brush = testDrawing(DrawingBrush, 12)
	require.NoError(t, brush.Validate())
}

func TestDrawing_CloneAndTranslate(t *testing.T) {
	d := testDrawing(DrawingRectangle, 2)

	clone := d.Clone()
	clone.Points[0].Price = -1
	require.Equal(t, 100.0, d.Points[0].Price)

	moved := d.Translate(120, 2.5)
	require.Equal(t, []Point{{Time: 120, Price: 102.5}, {Time: 180, Price: 103.5}}, moved.Points)
	require.Equal(t, int64(0), d.Points[0].Time)
}

func TestApply(t *testing.T) {
	drawings := []Drawing{
		testDrawing(DrawingTrendline, 2),
		testDrawing(DrawingText, 1),
		{ID: "other", SourceID: "ETHUSDT_1h", Type: DrawingText},
	}

	texts := Apply(drawings, WithType(DrawingText))
	require.Len(t, texts, 2)

	scoped := Apply(drawings, WithType(DrawingText, DrawingTrendline), WithSource("BTCUSDT_1h"))
	require.Len(t, scoped, 2)
	require.Empty(t, Apply(drawings, WithSource("SOLUSDT_1h")))
}

func TestLineStyle_DashPattern(t *testing.T) {
	require.Empty(t, LineSolid.DashPattern())
	require.Equal(t, []float64{2, 2}, LineDotted.DashPattern())
	require.Equal(t, []float64{5, 5}, LineDashed.DashPattern())
}

func TestParseSourceID(t *testing.T) {
	symbol, interval, err := ParseSourceID(SourceID("BTC_USDT", "15m"))
	require.NoError(t, err)
	require.Equal(t, "BTC_USDT", symbol)
	require.Equal(t, "15m", interval)

	for _, invalid := range []string{"", "BTCUSDT", "_1h", "BTCUSDT_", "BTCUSDT_fast"} {
		_, _, err := ParseSourceID(invalid)
		require.Error(t, err, invalid)
	}
}

func TestTool(t *testing.T) {
	require.True(t, ToolCursor.IsPointer())
	require.True(t, ToolCrosshair.IsPointer())

	_, ok := ToolCursor.DrawingType()
	require.False(t, ok)

	typ, ok := ToolFor(DrawingTriangle).DrawingType()
	require.True(t, ok)
	require.Equal(t, DrawingTriangle, typ)

	_, ok = Tool("lasso").DrawingType()
	require.False(t, ok)
}

func TestSeries_Search(t *testing.T) {
	s := Series[int64]{10, 20, 30}

	idx, exact := s.Search(20)
	require.Equal(t, 1, idx)
	require.True(t, exact)

	idx, exact = s.Search(25)
	require.Equal(t, 2, idx)
	require.False(t, exact)

	idx, _ = s.Search(99)
	require.Equal(t, 3, idx)
	require.Equal(t, int64(30), s.Last(0))
	require.Equal(t, Series[int64]{20, 30}, s.LastValues(2))
}

func TestBar_ToSlice(t *testing.T) {
	bar := Bar{Time: 3600, Open: 1.5, High: 2.25, Low: 1, Close: 2, Volume: 10}
	require.Equal(t, []string{"3600", "1.50", "2.00", "1.00", "2.25", "10.00"}, bar.ToSlice(2))
	require.Equal(t, [4]float64{1.5, 2.25, 1, 2}, bar.Prices())
	require.Equal(t, int64(3600), bar.GetTime().Unix())
}
