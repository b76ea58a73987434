package viewport

import (
	"testing"

	"github.com/raykavin/chartdraw/pkg/coord"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/stretchr/testify/require"
)

func testViewport(t *testing.T) *Viewport {
	t.Helper()

	v := New(WithSize(200, 100), WithBarSpacing(10), WithRightOffset(20), WithPricePadding(0))
	v.SetBars([]core.Bar{
		{Time: 0, Open: 12, High: 15, Low: 10, Close: 14},
		{Time: 60, Open: 14, High: 20, Low: 13, Close: 18},
		{Time: 120, Open: 18, High: 19, Low: 11, Close: 12},
	})
	return v
}

func TestViewport_LogicalIndexToPixel(t *testing.T) {
	v := testViewport(t)

	x, ok := v.LogicalIndexToPixel(2)
	require.True(t, ok)
	require.InDelta(t, 180.0, x, 1e-9)

	x, ok = v.LogicalIndexToPixel(0.5)
	require.True(t, ok)
	require.InDelta(t, 165.0, x, 1e-9)

	_, ok = New().LogicalIndexToPixel(0)
	require.False(t, ok)
}

func TestViewport_TimeToPixel_ExactOnly(t *testing.T) {
	v := testViewport(t)

	x, ok := v.TimeToPixel(60)
	require.True(t, ok)
	require.InDelta(t, 170.0, x, 1e-9)

	_, ok = v.TimeToPixel(90)
	require.False(t, ok)
}

func TestViewport_TimeToPixel_OffscreenBar(t *testing.T) {
	v := New(WithSize(15, 100), WithBarSpacing(10), WithRightOffset(0))
	v.SetBars([]core.Bar{{Time: 0, Low: 1, High: 2}, {Time: 60, Low: 1, High: 2}, {Time: 120, Low: 1, High: 2}})

	_, ok := v.TimeToPixel(0)
	require.False(t, ok)

	_, ok = v.TimeToPixel(120)
	require.True(t, ok)
}

func TestViewport_PixelToTime(t *testing.T) {
	v := testViewport(t)

	tests := []struct {
		name string
		x    float64
		want int64
	}{
		{"on bar", 170, 60},
		{"between bars", 175, 90},
		{"last bar", 180, 120},
		{"future", 190, 180},
		{"past", 150, -60},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := v.PixelToTime(tc.x)
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestViewport_PriceScale(t *testing.T) {
	v := testViewport(t)

	min, max := v.PriceRange()
	require.InDelta(t, 10.0, min, 1e-9)
	require.InDelta(t, 20.0, max, 1e-9)

	y, ok := v.PriceToPixel(15)
	require.True(t, ok)
	require.InDelta(t, 50.0, y, 1e-9)

	price, ok := v.PixelToPrice(25)
	require.True(t, ok)
	require.InDelta(t, 17.5, price, 1e-9)
}

func TestViewport_FitPricesFlatRange(t *testing.T) {
	v := New(WithPricePadding(0))
	v.FitPrices([]core.Bar{{Time: 0, Low: 5, High: 5}})

	min, max := v.PriceRange()
	require.Equal(t, 4.0, min)
	require.Equal(t, 6.0, max)
}

func TestViewport_WithPriceRange(t *testing.T) {
	v := New(WithSize(100, 200), WithPriceRange(0, 100))

	y, ok := v.PriceToPixel(25)
	require.True(t, ok)
	require.InDelta(t, 150.0, y, 1e-9)

	_, ok = New(WithPriceRange(10, 10)).PriceToPixel(10)
	require.False(t, ok)
}

func TestViewport_RequestRedraw(t *testing.T) {
	calls := 0
	v := New(WithRedraw(func() { calls++ }))
	v.RequestRedraw()
	require.Equal(t, 1, calls)

	v.SetRedraw(nil)
	v.RequestRedraw()
	require.Equal(t, 1, calls)
}

func TestViewport_AgreesWithResolverFallback(t *testing.T) {
	v := testViewport(t)
	r := coord.NewResolver(v, v)

	for _, time := range []int64{30, 90, 150, -30} {
		x, ok := r.TimeToPixel(time)
		require.True(t, ok)

		back, ok := v.PixelToTime(x)
		require.True(t, ok)
		require.Equal(t, time, back)
	}
}
