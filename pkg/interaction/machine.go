// Package interaction turns pointer events into drawing create, drag and
// commit operations.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
	"github.com/raykavin/chartdraw/pkg/hittest"
	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/raykavin/chartdraw/pkg/store"
)

// State is the pointer lifecycle phase
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateDragging
)

func (s State) String() string {
	switch s {
	case StateDrawing:
		return "drawing"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// PointerEvent is a pointer position in canvas pixels
type PointerEvent struct {
	X, Y float64
}

func (e PointerEvent) pixel() geom.Pixel { return geom.Pt(e.X, e.Y) }

// Resolver converts between pointer pixels and domain points
type Resolver interface {
	TimeToPixel(time int64) (float64, bool)
	PriceToPixel(price float64) (float64, bool)
	PixelToPoint(x, y float64) (core.Point, bool)
	BarAt(time int64) (core.Bar, bool)
}

// HitTester finds the drawing under the pointer
type HitTester interface {
	HitTest(x, y float64) *hittest.Hit
}

// Machine is the explicit interaction state shared by the host event handlers.
// Its methods must be called from the host event loop; only persistence runs on
// other goroutines, and those touch the store alone.
type Machine struct {
	store    *store.Store
	resolver Resolver
	tester   HitTester
	storage  core.DrawingStorage
	log      logger.Logger

	ctx         context.Context
	overlay     core.Overlay
	requestText TextRequester
	newID       func() string
	defaults    core.Properties
	magnet      bool
	onTool      func(core.Tool)

	tool         core.Tool
	state        State
	active       *core.Drawing
	controlPoint int
	dragOrigin   core.Point
	dragStart    core.Drawing
	originOK     bool
	path         []geom.Pixel

	pending sync.WaitGroup
	clears  clearEpochs
}

// clearEpochs counts ClearSource calls per source so saves committed before a
// clear can tell they were cleared while in flight.
type clearEpochs struct {
	sync.Mutex
	bySource map[string]int
}

func (c *clearEpochs) current(source string) int {
	c.Lock()
	defer c.Unlock()
	return c.bySource[source]
}

func (c *clearEpochs) bump(source string) {
	c.Lock()
	defer c.Unlock()
	if c.bySource == nil {
		c.bySource = make(map[string]int)
	}
	c.bySource[source]++
}

// New creates a machine in the idle state with the cursor tool
func New(s *store.Store, resolver Resolver, tester HitTester, storage core.DrawingStorage,
	log logger.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:        s,
		resolver:     resolver,
		tester:       tester,
		storage:      storage,
		log:          log,
		ctx:          context.Background(),
		newID:        uuid.NewString,
		defaults:     core.DefaultProperties(),
		tool:         core.ToolCursor,
		controlPoint: hittest.NoControlPoint,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the current lifecycle phase
func (m *Machine) State() State { return m.state }

// Tool returns the active tool
func (m *Machine) Tool() core.Tool { return m.tool }

// Magnet reports whether price snapping is enabled
func (m *Machine) Magnet() bool { return m.magnet }

// SetMagnet toggles price snapping
func (m *Machine) SetMagnet(enabled bool) { m.magnet = enabled }

// SetTool changes the active tool, abandoning any drawing or drag in progress
func (m *Machine) SetTool(tool core.Tool) {
	if m.state != StateIdle {
		m.abort()
	}
	m.setTool(tool)
}

func (m *Machine) setTool(tool core.Tool) {
	if m.tool == tool {
		return
	}
	m.tool = tool
	if m.onTool != nil {
		m.onTool(tool)
	}
}

// Wait blocks until every in-flight persistence call has finished
func (m *Machine) Wait() {
	m.pending.Wait()
}

// PointerDown dispatches on the tool active at press time
func (m *Machine) PointerDown(ev PointerEvent) {
	if m.tool.IsPointer() {
		m.beginDrag(ev)
		return
	}

	if m.tool == core.ToolText {
		m.openTextEditor(ev)
		return
	}

	typ, ok := m.tool.DrawingType()
	if !ok {
		m.log.WithField("tool", m.tool).Warn("pointer down with unknown tool")
		return
	}

	switch {
	case typ == core.DrawingBrush:
		m.beginBrush()
	case typ.SingleClick():
		m.placeSingleClick(typ, ev)
	case m.state == StateDrawing:
		// multi-step shapes advance on pointer up
	default:
		m.beginShape(typ, ev)
	}
}

// PointerMove updates the drawing in progress, the dragged drawing or hover state
func (m *Machine) PointerMove(ev PointerEvent) {
	switch m.state {
	case StateDrawing:
		if m.active != nil && m.active.Type == core.DrawingBrush {
			m.extendBrush(ev)
			return
		}
		m.trackControlPoint(ev)
	case StateDragging:
		m.drag(ev)
	default:
		if m.tool.IsPointer() {
			m.hover(ev)
		}
	}
}

// PointerUp finishes a stroke, advances a multi-step shape or commits
func (m *Machine) PointerUp(ev PointerEvent) {
	switch m.state {
	case StateDrawing:
		if m.active == nil {
			m.reset()
			return
		}
		if m.active.Type != core.DrawingBrush {
			m.trackControlPoint(ev)
		}
		switch {
		case m.active.Type == core.DrawingBrush:
			m.finishBrush()
		case needsThirdPoint(m.active.Type) && m.controlPoint == 1:
			m.active.Points[2] = m.active.Points[1]
			m.controlPoint = 2
			m.store.SetTemporary(m.active)
		default:
			m.commit(*m.active)
			m.setTool(core.ToolCursor)
		}
	case StateDragging:
		if m.active != nil {
			m.commit(*m.active)
		}
	}
}

// Cancel abandons the drawing or drag in progress without persisting
func (m *Machine) Cancel() {
	if m.state != StateIdle {
		m.abort()
	}
}

func needsThirdPoint(t core.DrawingType) bool {
	return t == core.DrawingTriangle || t == core.DrawingRotatedRectangle
}

// domainPoint converts the pointer to a domain point, snapped when the magnet is on
func (m *Machine) domainPoint(ev PointerEvent) (core.Point, bool) {
	p, ok := m.resolver.PixelToPoint(ev.X, ev.Y)
	if !ok {
		return core.Point{}, false
	}
	if m.magnet {
		p = m.snap(p, ev.pixel())
	}
	return p, true
}

func (m *Machine) newDrawing(typ core.DrawingType, points []core.Point) core.Drawing {
	now := time.Now().UTC()
	return core.Drawing{
		ID:         m.newID(),
		SourceID:   m.store.Source(),
		Type:       typ,
		Points:     points,
		Properties: m.defaults,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (m *Machine) beginDrag(ev PointerEvent) {
	hit := m.tester.HitTest(ev.X, ev.Y)
	if hit == nil {
		m.store.ClearSelection()
		return
	}

	m.store.Select(hit.Drawing.ID)

	d := hit.Drawing.Clone()
	d.Selected = true
	d.Hovered = false

	m.state = StateDragging
	m.active = &d
	m.controlPoint = hit.ControlPoint
	m.dragStart = d.Clone()
	m.dragOrigin, m.originOK = m.resolver.PixelToPoint(ev.X, ev.Y)
	m.store.SetTemporary(m.active)
}

func (m *Machine) drag(ev PointerEvent) {
	if m.active == nil {
		return
	}

	switch {
	case m.active.Type == core.DrawingText:
		p, ok := m.domainPoint(ev)
		if !ok {
			return
		}
		m.active.Points = []core.Point{p}
	case m.controlPoint == hittest.NoControlPoint:
		p, ok := m.resolver.PixelToPoint(ev.X, ev.Y)
		if !ok || !m.originOK {
			return
		}
		moved := m.dragStart.Translate(p.Time-m.dragOrigin.Time, p.Price-m.dragOrigin.Price)
		m.active.Points = moved.Points
	default:
		if !m.setControlPoint(ev) {
			return
		}
	}

	m.store.SetTemporary(m.active)
}

func (m *Machine) hover(ev PointerEvent) {
	if hit := m.tester.HitTest(ev.X, ev.Y); hit != nil {
		m.store.SetHovered(hit.Drawing.ID)
		return
	}
	m.store.SetHovered("")
}

func (m *Machine) openTextEditor(ev PointerEvent) {
	if m.requestText == nil {
		m.log.Debug("text tool used without a text requester")
		return
	}

	at, ok := m.resolver.PixelToPoint(ev.X, ev.Y)
	if !ok {
		return
	}

	var existing *core.Drawing
	if hit := m.tester.HitTest(ev.X, ev.Y); hit != nil && hit.Drawing.Type == core.DrawingText {
		d := hit.Drawing.Clone()
		existing = &d
		at = d.Points[0]
	}

	m.requestText(existing, at)
}

// ApplyText commits the result of the text editor: a new label at at, or the
// edited text of existing. Empty text creates nothing.
func (m *Machine) ApplyText(existing *core.Drawing, text string, at core.Point) {
	var d core.Drawing
	switch {
	case existing != nil:
		d = existing.Clone()
		d.Properties.Text = text
		d.UpdatedAt = time.Now().UTC()
	case text == "":
		return
	default:
		d = m.newDrawing(core.DrawingText, []core.Point{at})
		d.Properties.Text = text
	}

	m.commit(d)
	m.setTool(core.ToolCursor)
}

func (m *Machine) placeSingleClick(typ core.DrawingType, ev PointerEvent) {
	p, ok := m.domainPoint(ev)
	if !ok {
		return
	}

	m.commit(m.newDrawing(typ, []core.Point{p}))
	m.setTool(core.ToolCursor)
}

func (m *Machine) beginShape(typ core.DrawingType, ev PointerEvent) {
	p, ok := m.domainPoint(ev)
	if !ok {
		return
	}

	count, _, err := typ.PointCount()
	if err != nil {
		m.log.WithError(err).Warn("cannot start drawing")
		return
	}

	points := make([]core.Point, count)
	for i := range points {
		points[i] = p
	}

	d := m.newDrawing(typ, points)
	m.state = StateDrawing
	m.active = &d
	m.controlPoint = 1
	m.store.SetTemporary(m.active)
}

func (m *Machine) trackControlPoint(ev PointerEvent) {
	if m.active == nil {
		return
	}
	if m.setControlPoint(ev) {
		m.store.SetTemporary(m.active)
	}
}

func (m *Machine) setControlPoint(ev PointerEvent) bool {
	if m.controlPoint < 0 || m.controlPoint >= len(m.active.Points) {
		return false
	}
	p, ok := m.domainPoint(ev)
	if !ok {
		return false
	}
	m.active.Points[m.controlPoint] = p
	return true
}

func (m *Machine) beginBrush() {
	d := m.newDrawing(core.DrawingBrush, nil)
	m.state = StateDrawing
	m.active = &d
	m.path = m.path[:0]
}

func (m *Machine) extendBrush(ev PointerEvent) {
	m.path = append(m.path, ev.pixel())
	if m.overlay == nil || len(m.path) < 2 {
		return
	}

	from, to := m.path[len(m.path)-2], m.path[len(m.path)-1]
	m.overlay.StrokeSegment(from.X, from.Y, to.X, to.Y, m.active.Properties.Color, m.active.Properties.LineWidth)
}

func (m *Machine) finishBrush() {
	points := make([]core.Point, 0, len(m.path))
	for _, px := range m.path {
		if p, ok := m.resolver.PixelToPoint(px.X, px.Y); ok {
			points = append(points, p)
		}
	}

	if len(points) < core.MinBrushPoints {
		m.log.Debugf("discarding brush stroke with %d points", len(points))
		m.abort()
		return
	}

	if m.overlay != nil {
		m.overlay.Clear()
	}

	d := *m.active
	d.Points = points
	m.commit(d)
	m.setTool(core.ToolCursor)
}

// commit shows the drawing immediately through the transient collection and
// persists it in the background.
func (m *Machine) commit(d core.Drawing) {
	m.reset()

	if err := d.Validate(); err != nil {
		m.log.WithError(err).Warn("discarding invalid drawing")
		m.store.SetTemporary(nil)
		return
	}

	m.store.PushTransient(d)
	m.store.SetTemporary(nil)
	m.save(d)
}

// abort drops the drawing in progress without persisting it
func (m *Machine) abort() {
	if m.overlay != nil && m.active != nil && m.active.Type == core.DrawingBrush {
		m.overlay.Clear()
	}
	m.reset()
	m.store.SetTemporary(nil)
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.active = nil
	m.controlPoint = hittest.NoControlPoint
	m.dragStart = core.Drawing{}
	m.originOK = false
	m.path = m.path[:0]
}

// save persists d without its view flags. A save that lands after the source
// was cleared is deleted again instead of merged.
func (m *Machine) save(d core.Drawing) {
	d = d.Clone()
	d.Selected, d.Hovered = false, false
	epoch := m.clears.current(d.SourceID)

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		log := m.log.WithFields(map[string]any{"id": d.ID, "source": d.SourceID})
		if err := m.storage.Save(m.ctx, d); err != nil {
			log.WithError(err).Error("save drawing failed")
			return
		}

		if m.clears.current(d.SourceID) != epoch {
			log.Debug("source cleared while saving, removing drawing")
			if err := m.storage.Delete(m.ctx, d.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
				log.WithError(err).Error("delete cleared drawing failed")
			}
			return
		}

		if !m.store.UpsertPersisted(d) {
			log.Debug("saved drawing belongs to an inactive source")
		}
	}()
}

// DeleteSelected removes the selected drawing optimistically and deletes it
// from storage in the background. It reports whether a drawing was selected.
func (m *Machine) DeleteSelected(ctx context.Context) bool {
	selected, ok := m.store.Selected()
	if !ok {
		return false
	}

	if m.active != nil && m.active.ID == selected.ID {
		m.abort()
	}

	m.store.Remove(selected.ID)
	m.store.ClearSelection()

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		if err := m.storage.Delete(ctx, selected.ID); err != nil {
			m.log.WithError(err).WithField("id", selected.ID).Error("delete drawing failed")
		}
	}()

	return true
}

// ClearSource removes every drawing of the active source
func (m *Machine) ClearSource(ctx context.Context) {
	source := m.store.Source()
	m.clears.bump(source)
	m.abort()
	m.store.SetTransient(nil)
	m.store.SetPersisted(nil)

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		if err := m.storage.Clear(ctx, source); err != nil {
			m.log.WithError(err).WithField("source", source).Error("clear drawings failed")
		}
	}()
}

// SwitchSource activates the symbol and interval pair, discarding the previous
// source's state at once and loading the new one in the background.
func (m *Machine) SwitchSource(ctx context.Context, symbol, interval string) error {
	if symbol == "" || interval == "" {
		return fmt.Errorf("switch source: %w", core.ErrEmptySource)
	}

	m.abort()
	m.store.SetSource(core.SourceID(symbol, interval))
	m.Reload(ctx)

	return nil
}

// Reload fetches the persisted drawings of the active source in the background.
// Results that arrive after another source was activated are dropped.
func (m *Machine) Reload(ctx context.Context) {
	source := m.store.Source()
	if source == "" {
		return
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		log := m.log.WithField("source", source)
		drawings, err := m.storage.Load(ctx, source)
		if err != nil {
			log.WithError(err).Error("load drawings failed")
			return
		}

		if !m.store.SetPersistedFor(source, drawings) {
			log.Debug("discarding drawings of an inactive source")
			return
		}
		log.Debugf("loaded %d drawings", len(drawings))
	}()
}
