// Package raster implements core.Canvas on an in-memory RGBA image so frames can
// be rendered headless and encoded as PNG.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const (
	arcSegments  = 32
	discSegments = 12
	shadowAlpha  = 0.35
)

var (
	BullishColor = "#26A69A"
	BearishColor = "#EF5350"
)

var (
	regularOnce sync.Once
	regular     *opentype.Font
)

func regularFont() *opentype.Font {
	regularOnce.Do(func() {
		// nil falls back to basicfont in face()
		regular, _ = opentype.Parse(goregular.TTF)
	})
	return regular
}

type state struct {
	stroke     color.NRGBA
	fill       color.NRGBA
	lineWidth  float64
	dash       []float64
	alpha      float64
	shadow     color.NRGBA
	shadowBlur float64
	fontSize   float64
}

type subpath struct {
	points []geom.Pixel
	closed bool
}

// Canvas is a core.Canvas backed by an *image.RGBA
type Canvas struct {
	img   *image.RGBA
	st    state
	stack []state
	paths []subpath
	faces map[float64]font.Face
}

// New creates a transparent canvas of the given size
func New(width, height int) *Canvas {
	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
		st: state{
			stroke:    color.NRGBA{A: 255},
			fill:      color.NRGBA{A: 255},
			lineWidth: 1,
			alpha:     1,
			fontSize:  core.DefaultProperties().FontSize,
		},
		faces: make(map[float64]font.Face),
	}
}

// Image returns the backing image
func (c *Canvas) Image() *image.RGBA { return c.img }

// PNG encodes the canvas
func (c *Canvas) PNG(w io.Writer) error { return png.Encode(w, c.img) }

// Paint covers the whole canvas with col, replacing existing pixels
func (c *Canvas) Paint(col string) {
	parsed, err := ParseColor(col)
	if err != nil {
		return
	}
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(parsed), image.Point{}, draw.Src)
}

func (c *Canvas) Width() float64  { return float64(c.img.Bounds().Dx()) }
func (c *Canvas) Height() float64 { return float64(c.img.Bounds().Dy()) }

func (c *Canvas) Save() {
	saved := c.st
	saved.dash = append([]float64(nil), c.st.dash...)
	c.stack = append(c.stack, saved)
}

func (c *Canvas) Restore() {
	if len(c.stack) == 0 {
		return
	}
	c.st = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

// SetStrokeStyle keeps the previous color when col cannot be parsed
func (c *Canvas) SetStrokeStyle(col string) {
	if parsed, err := ParseColor(col); err == nil {
		c.st.stroke = parsed
	}
}

// SetFillStyle keeps the previous color when col cannot be parsed
func (c *Canvas) SetFillStyle(col string) {
	if parsed, err := ParseColor(col); err == nil {
		c.st.fill = parsed
	}
}

func (c *Canvas) SetLineWidth(width float64) {
	if width > 0 {
		c.st.lineWidth = width
	}
}

func (c *Canvas) SetLineDash(pattern []float64) {
	c.st.dash = append([]float64(nil), pattern...)
}

func (c *Canvas) SetGlobalAlpha(alpha float64) {
	c.st.alpha = math.Max(0, math.Min(1, alpha))
}

func (c *Canvas) SetShadow(col string, blur float64) {
	if parsed, err := ParseColor(col); err == nil {
		c.st.shadow = parsed
	}
	c.st.shadowBlur = math.Max(0, blur)
}

func (c *Canvas) SetFont(size float64) {
	if size > 0 {
		c.st.fontSize = size
	}
}

func (c *Canvas) BeginPath() {
	c.paths = c.paths[:0]
}

func (c *Canvas) MoveTo(x, y float64) {
	c.paths = append(c.paths, subpath{points: []geom.Pixel{geom.Pt(x, y)}})
}

func (c *Canvas) LineTo(x, y float64) {
	if len(c.paths) == 0 {
		c.MoveTo(x, y)
		return
	}
	last := &c.paths[len(c.paths)-1]
	last.points = append(last.points, geom.Pt(x, y))
}

// Arc appends a circular arc, connected to the current subpath if there is one
func (c *Canvas) Arc(x, y, radius, start, end float64) {
	for i := 0; i <= arcSegments; i++ {
		theta := start + (end-start)*float64(i)/arcSegments
		px, py := x+radius*math.Cos(theta), y+radius*math.Sin(theta)
		if i == 0 && (len(c.paths) == 0 || c.paths[len(c.paths)-1].closed) {
			c.MoveTo(px, py)
			continue
		}
		c.LineTo(px, py)
	}
}

func (c *Canvas) ClosePath() {
	if len(c.paths) == 0 {
		return
	}
	c.paths[len(c.paths)-1].closed = true
}

func (c *Canvas) Stroke() {
	polylines := make([][]geom.Pixel, 0, len(c.paths))
	for _, sp := range c.paths {
		pts := sp.points
		if sp.closed && len(pts) > 1 {
			pts = append(append([]geom.Pixel(nil), pts...), pts[0])
		}
		polylines = append(polylines, pts)
	}
	c.strokePolylines(polylines)
}

func (c *Canvas) Fill() {
	polygons := make([][]geom.Pixel, 0, len(c.paths))
	for _, sp := range c.paths {
		polygons = append(polygons, sp.points)
	}
	c.fillPolygons(polygons, c.st.fill)
}

func (c *Canvas) FillRect(x, y, w, h float64) {
	c.fillPolygons([][]geom.Pixel{rectPolygon(x, y, w, h)}, c.st.fill)
}

func (c *Canvas) StrokeRect(x, y, w, h float64) {
	rect := rectPolygon(x, y, w, h)
	c.strokePolylines([][]geom.Pixel{append(rect, rect[0])})
}

func (c *Canvas) MeasureText(text string) (width, height float64) {
	face := c.face()
	m := face.Metrics()
	return fixedToFloat(font.MeasureString(face, text)), fixedToFloat(m.Ascent + m.Descent)
}

func (c *Canvas) FillText(text string, x, y float64) {
	face := c.face()
	baseline := y + fixedToFloat(face.Metrics().Ascent)

	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(c.paint(c.st.fill)),
		Face: face,
		Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(baseline)},
	}
	d.DrawString(text)
}

// StrokeSegment draws a single segment without touching the canvas state
func (c *Canvas) StrokeSegment(x0, y0, x1, y1 float64, col string, width float64) {
	c.Save()
	defer c.Restore()

	c.SetStrokeStyle(col)
	c.SetLineWidth(width)
	c.st.dash = nil
	c.st.shadowBlur = 0
	c.strokePolylines([][]geom.Pixel{{geom.Pt(x0, y0), geom.Pt(x1, y1)}})
}

// Clear makes every pixel transparent
func (c *Canvas) Clear() {
	c.Paint("transparent")
}

// DrawBars paints candles for bars at their logical index positions
func (c *Canvas) DrawBars(chart core.ChartSurface, bars []core.Bar, bodyWidth float64) {
	c.Save()
	defer c.Restore()

	c.SetLineWidth(1)
	c.SetLineDash(nil)

	for i, bar := range bars {
		x, ok := chart.LogicalIndexToPixel(float64(i))
		if !ok || x < -bodyWidth || x > c.Width()+bodyWidth {
			continue
		}

		var ys [4]float64
		resolved := true
		for j, price := range bar.Prices() {
			if ys[j], ok = chart.PriceToPixel(price); !ok {
				resolved = false
			}
		}
		if !resolved {
			continue
		}
		yOpen, yHigh, yLow, yClose := ys[0], ys[1], ys[2], ys[3]

		col := BullishColor
		if bar.Close < bar.Open {
			col = BearishColor
		}
		c.SetStrokeStyle(col)
		c.SetFillStyle(col)

		c.strokePolylines([][]geom.Pixel{{geom.Pt(x, yHigh), geom.Pt(x, yLow)}})
		top := math.Min(yOpen, yClose)
		height := math.Max(math.Abs(yOpen-yClose), 1)
		c.FillRect(x-bodyWidth/2, top, bodyWidth, height)
	}
}

func (c *Canvas) face() font.Face {
	size := c.st.fontSize
	if face, ok := c.faces[size]; ok {
		return face
	}

	var face font.Face = basicfont.Face7x13
	if f := regularFont(); f != nil {
		if opened, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		}); err == nil {
			face = opened
		}
	}

	c.faces[size] = face
	return face
}

// paint applies the global alpha to col
func (c *Canvas) paint(col color.NRGBA) color.NRGBA {
	col.A = uint8(float64(col.A)*c.st.alpha + 0.5)
	return col
}

func (c *Canvas) fillPolygons(polygons [][]geom.Pixel, col color.NRGBA) {
	b := c.img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())

	drawn := false
	for _, poly := range polygons {
		if len(poly) < 3 {
			continue
		}
		r.MoveTo(float32(poly[0].X), float32(poly[0].Y))
		for _, p := range poly[1:] {
			r.LineTo(float32(p.X), float32(p.Y))
		}
		r.ClosePath()
		drawn = true
	}

	if drawn {
		r.Draw(c.img, b, image.NewUniform(c.paint(col)), image.Point{})
	}
}

func (c *Canvas) strokePolylines(polylines [][]geom.Pixel) {
	if c.st.shadowBlur > 0 && c.st.shadow.A > 0 {
		glow := c.st.shadow
		glow.A = uint8(float64(glow.A) * shadowAlpha)
		c.fillPolygons(outline(polylines, c.st.lineWidth+c.st.shadowBlur, nil), glow)
	}
	c.fillPolygons(outline(polylines, c.st.lineWidth, c.st.dash), c.st.stroke)
}

// outline converts polylines into filled polygons: one quad per segment and a
// disc at every vertex for round joins and caps. All polygons share the same
// winding so overlaps do not cancel out.
func outline(polylines [][]geom.Pixel, width float64, dash []float64) [][]geom.Pixel {
	half := width / 2
	var polygons [][]geom.Pixel

	for _, line := range polylines {
		for _, piece := range dashPolyline(line, dash) {
			for i, p := range piece {
				polygons = append(polygons, disc(p, half))
				if i == 0 {
					continue
				}
				a := piece[i-1]
				length := geom.Distance(a, p)
				if length < geom.Epsilon {
					continue
				}
				dir := p.Sub(a).Scale(1 / length)
				n := geom.Pt(-dir.Y, dir.X).Scale(half)
				polygons = append(polygons, []geom.Pixel{a.Add(n), p.Add(n), p.Sub(n), a.Sub(n)})
			}
		}
	}

	return polygons
}

func disc(center geom.Pixel, radius float64) []geom.Pixel {
	pts := make([]geom.Pixel, discSegments)
	for k := range pts {
		theta := -2 * math.Pi * float64(k) / discSegments
		pts[k] = geom.Pt(center.X+radius*math.Cos(theta), center.Y+radius*math.Sin(theta))
	}
	return pts
}

// dashPolyline splits a polyline into the visible pieces of a dash pattern
func dashPolyline(points []geom.Pixel, pattern []float64) [][]geom.Pixel {
	total := 0.0
	for _, v := range pattern {
		total += math.Max(0, v)
	}
	if len(points) < 2 || total <= 0 {
		return [][]geom.Pixel{points}
	}
	if len(pattern)%2 == 1 {
		pattern = append(append([]float64(nil), pattern...), pattern...)
	}

	var (
		pieces [][]geom.Pixel
		idx    int
		left   = pattern[0]
		on     = true
		cur    = []geom.Pixel{points[0]}
	)

	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		segLen := geom.Distance(a, b)
		pos := 0.0

		for segLen-pos > left {
			pos += left
			p := a.Add(b.Sub(a).Scale(pos / segLen))
			if on {
				pieces = append(pieces, append(cur, p))
				cur = nil
			} else {
				cur = []geom.Pixel{p}
			}
			on = !on
			idx = (idx + 1) % len(pattern)
			left = math.Max(0, pattern[idx])
		}

		left -= segLen - pos
		if on {
			cur = append(cur, b)
		}
	}

	if on && len(cur) > 1 {
		pieces = append(pieces, cur)
	}
	return pieces
}

func rectPolygon(x, y, w, h float64) []geom.Pixel {
	return []geom.Pixel{geom.Pt(x, y), geom.Pt(x+w, y), geom.Pt(x+w, y+h), geom.Pt(x, y+h)}
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
