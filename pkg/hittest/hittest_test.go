package hittest

import (
	"testing"

	"github.com/raykavin/chartdraw/pkg/coord"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
	"github.com/raykavin/chartdraw/pkg/logger/zerolog"
	"github.com/raykavin/chartdraw/pkg/store"
	"github.com/stretchr/testify/require"
)

// identityChart maps time t to x=t and price p to y=p
type identityChart struct{}

func (identityChart) TimeToPixel(t int64) (float64, bool) { return float64(t), t >= 0 }
func (identityChart) LogicalIndexToPixel(i float64) (float64, bool) { return i, true }
func (identityChart) PriceToPixel(p float64) (float64, bool) { return p, true }
func (identityChart) PixelToTime(x float64) (int64, bool) { return int64(x), true }
func (identityChart) PixelToPrice(y float64) (float64, bool) { return y, true }
func (identityChart) RequestRedraw() {}

func setup(t *testing.T, drawings ...core.Drawing) (*Tester, *store.Store) {
	t.Helper()
	s := store.New(zerolog.Nop(), store.WithSource("BTCUSDT_1h"))
	s.SetPersisted(drawings)
	return New(coord.NewResolver(identityChart{}, s), s), s
}

func drawing(id string, typ core.DrawingType, points ...core.Point) core.Drawing {
	return core.Drawing{
		ID:         id,
		SourceID:   "BTCUSDT_1h",
		Type:       typ,
		Points:     points,
		Properties: core.DefaultProperties(),
	}
}

func pt(x, y float64) core.Point { return core.Point{Time: int64(x), Price: y} }

func TestHitTest_HorizontalLinePrecision(t *testing.T) {
	tester, _ := setup(t, drawing("h", core.DrawingHorizontalLine, pt(50, 200)))

	for _, x := range []float64{0, 50, 333, 2000} {
		hit := tester.HitTest(x, 200)
		require.NotNil(t, hit, "x=%v", x)
		require.Equal(t, "h", hit.Drawing.ID)
		require.Nil(t, tester.HitTest(x, 209), "x=%v", x)
	}
	require.NotNil(t, tester.HitTest(10, 208))
}

func TestHitTest_VerticalLine(t *testing.T) {
	tester, _ := setup(t, drawing("v", core.DrawingVerticalLine, pt(100, 50)))
	require.NotNil(t, tester.HitTest(105, 900))
	require.Nil(t, tester.HitTest(109, 50))
}

func TestHitTest_HorizontalRayIsLeftBounded(t *testing.T) {
	tester, _ := setup(t, drawing("r", core.DrawingHorizontalRay, pt(100, 200)))
	require.NotNil(t, tester.HitTest(500, 203))
	require.NotNil(t, tester.HitTest(93, 200))
	require.Nil(t, tester.HitTest(91, 200))
}

func TestHitTest_RectanglePolygon(t *testing.T) {
	tester, _ := setup(t, drawing("rect", core.DrawingRectangle, pt(0, 0), pt(100, 100)))

	hit := tester.HitTest(50, 50)
	require.NotNil(t, hit)
	require.True(t, hit.WholeShape())

	hit = tester.HitTest(0, 0)
	require.NotNil(t, hit)
	require.Equal(t, 0, hit.ControlPoint)

	hit = tester.HitTest(97, 103)
	require.NotNil(t, hit)
	require.Equal(t, 1, hit.ControlPoint)

	require.Nil(t, tester.HitTest(150, 50))
}

func TestHitTest_Triangle(t *testing.T) {
	tester, _ := setup(t, drawing("tri", core.DrawingTriangle, pt(0, 0), pt(100, 0), pt(0, 100)))

	hit := tester.HitTest(20, 20)
	require.NotNil(t, hit)
	require.True(t, hit.WholeShape())

	hit = tester.HitTest(2, 98)
	require.NotNil(t, hit)
	require.Equal(t, 2, hit.ControlPoint)

	require.Nil(t, tester.HitTest(80, 80))
}

func TestHitTest_RotatedRectangle(t *testing.T) {
	tester, _ := setup(t, drawing("rr", core.DrawingRotatedRectangle, pt(0, 0), pt(100, 0), pt(30, 60)))

	hit := tester.HitTest(90, 50)
	require.NotNil(t, hit)
	require.True(t, hit.WholeShape())

	require.Nil(t, tester.HitTest(90, 70))
}

func TestHitTest_RotatedRectangleDegenerate(t *testing.T) {
	d := drawing("rr", core.DrawingRotatedRectangle, pt(50, 50), pt(50, 50), pt(90, 90))
	tester, _ := setup(t, d)

	require.NotPanics(t, func() {
		require.Nil(t, tester.HitTest(70, 70))
	})

	// the coincident base points are still draggable handles
	hit := tester.HitTest(50, 50)
	require.NotNil(t, hit)
	require.Equal(t, 0, hit.ControlPoint)
}

func TestHitTest_TrendlineEndpointsAndSegment(t *testing.T) {
	tester, _ := setup(t, drawing("t", core.DrawingTrendline, pt(0, 0), pt(100, 100)))

	hit := tester.HitTest(99, 99)
	require.NotNil(t, hit)
	require.Equal(t, 1, hit.ControlPoint)

	hit = tester.HitTest(50, 55)
	require.NotNil(t, hit)
	require.True(t, hit.WholeShape())

	require.Nil(t, tester.HitTest(50, 70))
}

func TestHitTest_RayUsesFiniteSegment(t *testing.T) {
	tester, _ := setup(t, drawing("ray", core.DrawingRay, pt(0, 100), pt(100, 100)))

	require.NotNil(t, tester.HitTest(50, 100))
	require.Nil(t, tester.HitTest(400, 100))
}

func TestHitTest_Brush(t *testing.T) {
	tester, _ := setup(t, drawing("b", core.DrawingBrush, pt(0, 0), pt(50, 0), pt(50, 50)))

	require.NotNil(t, tester.HitTest(25, 6))
	require.NotNil(t, tester.HitTest(56, 30))
	require.Nil(t, tester.HitTest(25, 25))
}

func TestHitTest_TextUsesCachedBounds(t *testing.T) {
	tester, s := setup(t, drawing("txt", core.DrawingText, pt(10, 10)))

	require.Nil(t, tester.HitTest(12, 12))

	s.SetTextBounds("txt", geom.Rect{X: 10, Y: 10, W: 40, H: 14})
	require.NotNil(t, tester.HitTest(12, 12))
	require.NotNil(t, tester.HitTest(54, 28))
	require.Nil(t, tester.HitTest(56, 12))
}

func TestHitTest_FirstMatchWinsAndTemporaryIgnored(t *testing.T) {
	tester, s := setup(t,
		drawing("first", core.DrawingHorizontalLine, pt(0, 100)),
		drawing("second", core.DrawingHorizontalLine, pt(0, 104)),
	)

	hit := tester.HitTest(10, 102)
	require.NotNil(t, hit)
	require.Equal(t, "first", hit.Drawing.ID)

	tmp := drawing("tmp", core.DrawingHorizontalLine, pt(0, 300))
	s.SetTemporary(&tmp)
	require.Nil(t, tester.HitTest(10, 300))
}

func TestTest_UnknownType(t *testing.T) {
	tester, _ := setup(t)
	_, hit, err := tester.Test(drawing("x", "spiral"), geom.Pt(0, 0))
	require.False(t, hit)
	require.ErrorIs(t, err, core.ErrUnknownType)
}
