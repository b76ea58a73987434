// Package store keeps the drawings of the active source in three collections:
// persisted (confirmed by storage), transient (committed, awaiting confirmation)
// and the single temporary drawing being created or dragged.
package store

import (
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/samber/lo"
)

// Frame is an immutable view of the store handed to one render or hit-test pass
type Frame struct {
	Source     string
	Background []core.Drawing
	Temporary  *core.Drawing
	Bars       []core.Bar
}

// Store holds the annotation collections of the active source. Setters mark the
// view dirty and request a redraw; readers always receive copies.
type Store struct {
	sync.Mutex
	log    logger.Logger
	redraw func()

	source     string
	persisted  []core.Drawing
	transient  []core.Drawing
	temporary  *core.Drawing
	bars       []core.Bar
	textBounds *cache.Cache
	dirty      bool
}

// Option configures a Store
type Option func(*Store)

// WithRedraw sets the callback invoked after every mutation
func WithRedraw(fn func()) Option {
	return func(s *Store) {
		s.redraw = fn
	}
}

// WithSource sets the initial active source id
func WithSource(sourceID string) Option {
	return func(s *Store) {
		s.source = sourceID
	}
}

// New creates an empty store
func New(log logger.Logger, opts ...Option) *Store {
	s := &Store{
		log:        log,
		textBounds: cache.New(cache.NoExpiration, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// update applies fn under the lock, marks the view dirty and requests a redraw
// once the lock is released so the redraw may read the store.
func (s *Store) update(fn func()) {
	s.Lock()
	fn()
	s.dirty = true
	redraw := s.redraw
	s.Unlock()

	if redraw != nil {
		redraw()
	}
}

// SetRedraw replaces the redraw callback
func (s *Store) SetRedraw(fn func()) {
	s.Lock()
	defer s.Unlock()
	s.redraw = fn
}

// SetPersisted replaces the persisted collection, drops transient entries that
// are now confirmed and prunes text bounds of ids no longer persisted. Selection
// and hover are view state: stored flags are replaced by the current ones.
func (s *Store) SetPersisted(list []core.Drawing) {
	s.update(func() {
		s.setPersistedLocked(s.withViewFlagsLocked(list))
	})
}

// SetPersistedFor replaces the persisted collection only if sourceID is still
// the active source. It reports whether the list was applied.
func (s *Store) SetPersistedFor(sourceID string, list []core.Drawing) bool {
	applied := false
	s.update(func() {
		if s.source != sourceID {
			return
		}
		s.setPersistedLocked(s.withViewFlagsLocked(list))
		applied = true
	})
	return applied
}

// withViewFlagsLocked copies list with Selected and Hovered taken from the
// visible collection, so at most one drawing stays selected.
func (s *Store) withViewFlagsLocked(list []core.Drawing) []core.Drawing {
	var selected, hovered string
	for _, d := range s.visibleLocked() {
		if d.Selected {
			selected = d.ID
		}
		if d.Hovered {
			hovered = d.ID
		}
	}

	return lo.Map(list, func(d core.Drawing, _ int) core.Drawing {
		d = d.Clone()
		d.Selected = selected != "" && d.ID == selected
		d.Hovered = hovered != "" && d.ID == hovered
		return d
	})
}

func (s *Store) setPersistedLocked(list []core.Drawing) {
	s.persisted = cloneAll(list)

	ids := idSet(s.persisted)
	s.transient = lo.Reject(s.transient, func(d core.Drawing, _ int) bool {
		_, confirmed := ids[d.ID]
		return confirmed
	})

	for id := range s.textBounds.Items() {
		if _, ok := ids[id]; !ok {
			s.textBounds.Delete(id)
		}
	}
}

// UpsertPersisted merges one confirmed drawing into the persisted collection,
// replacing any entry with the same id and keeping its current selection and
// hover flags. Drawings of an inactive source are ignored and false is returned.
func (s *Store) UpsertPersisted(d core.Drawing) bool {
	applied := false
	s.update(func() {
		if d.SourceID != s.source {
			return
		}

		// selection may have moved while the save was in flight
		d.Selected, d.Hovered = false, false
		if cur, ok := lo.Find(s.visibleLocked(), func(v core.Drawing) bool { return v.ID == d.ID }); ok {
			d.Selected, d.Hovered = cur.Selected, cur.Hovered
		}

		list := cloneAll(s.persisted)
		if _, idx, ok := lo.FindIndexOf(list, func(p core.Drawing) bool { return p.ID == d.ID }); ok {
			list[idx] = d.Clone()
		} else {
			list = append(list, d.Clone())
		}

		s.setPersistedLocked(list)
		applied = true
	})
	return applied
}

// SetTransient replaces the transient collection
func (s *Store) SetTransient(list []core.Drawing) {
	s.update(func() {
		s.transient = cloneAll(list)
	})
}

// PushTransient adds a committed drawing to the transient collection,
// replacing an earlier uncommitted version with the same id.
func (s *Store) PushTransient(d core.Drawing) {
	s.update(func() {
		s.transient = append(lo.Reject(s.transient, func(t core.Drawing, _ int) bool {
			return t.ID == d.ID
		}), d.Clone())
	})
}

// SetTemporary replaces the in-progress drawing; nil clears it
func (s *Store) SetTemporary(d *core.Drawing) {
	s.update(func() {
		if d == nil {
			s.temporary = nil
			return
		}
		clone := d.Clone()
		s.temporary = &clone
	})
}

// SetBarSeries replaces the bars used for coordinate fallback and magnet snapping
func (s *Store) SetBarSeries(bars []core.Bar) {
	s.update(func() {
		s.bars = append([]core.Bar(nil), bars...)
	})
}

// Source returns the active source id
func (s *Store) Source() string {
	s.Lock()
	defer s.Unlock()
	return s.source
}

// SetSource switches the active source, discarding every collection of the
// previous one so nothing ghosts across instruments.
func (s *Store) SetSource(sourceID string) {
	s.update(func() {
		if s.source == sourceID {
			return
		}
		s.log.WithField("source", sourceID).Debugf("switching source from %q", s.source)

		s.source = sourceID
		s.persisted = nil
		s.transient = nil
		s.temporary = nil
		s.textBounds.Flush()
	})
}

// Persisted returns a copy of the persisted collection
func (s *Store) Persisted() []core.Drawing {
	s.Lock()
	defer s.Unlock()
	return cloneAll(s.persisted)
}

// Transient returns a copy of the transient collection
func (s *Store) Transient() []core.Drawing {
	s.Lock()
	defer s.Unlock()
	return cloneAll(s.transient)
}

// Temporary returns a copy of the in-progress drawing, or nil
func (s *Store) Temporary() *core.Drawing {
	s.Lock()
	defer s.Unlock()
	if s.temporary == nil {
		return nil
	}
	clone := s.temporary.Clone()
	return &clone
}

// Bars implements core.BarSource.
func (s *Store) Bars() []core.Bar {
	s.Lock()
	defer s.Unlock()
	return append([]core.Bar(nil), s.bars...)
}

// Visible returns the persisted drawings, each replaced by a transient entry
// with the same id, followed by the transient drawings not yet persisted.
func (s *Store) Visible() []core.Drawing {
	s.Lock()
	defer s.Unlock()
	return s.visibleLocked()
}

func (s *Store) visibleLocked() []core.Drawing {
	shadow := lo.KeyBy(s.transient, func(d core.Drawing) string { return d.ID })
	persistedIDs := idSet(s.persisted)

	visible := make([]core.Drawing, 0, len(s.persisted)+len(s.transient))
	for _, d := range s.persisted {
		if t, ok := shadow[d.ID]; ok {
			d = t
		}
		visible = append(visible, d.Clone())
	}

	for _, d := range s.transient {
		if _, ok := persistedIDs[d.ID]; !ok {
			visible = append(visible, d.Clone())
		}
	}

	return visible
}

// Snapshot returns the frame data for one render or hit-test pass
func (s *Store) Snapshot() Frame {
	s.Lock()
	defer s.Unlock()

	frame := Frame{
		Source:     s.source,
		Background: s.visibleLocked(),
		Bars:       append([]core.Bar(nil), s.bars...),
	}
	if s.temporary != nil {
		clone := s.temporary.Clone()
		frame.Temporary = &clone
	}

	return frame
}

// Find returns the visible drawing with the given id
func (s *Store) Find(id string) (core.Drawing, bool) {
	s.Lock()
	defer s.Unlock()
	return lo.Find(s.visibleLocked(), func(d core.Drawing) bool { return d.ID == id })
}

// Selected returns the selected visible drawing, if any
func (s *Store) Selected() (core.Drawing, bool) {
	s.Lock()
	defer s.Unlock()
	return lo.Find(s.visibleLocked(), func(d core.Drawing) bool { return d.Selected })
}

// Select marks the drawing with id as selected and clears every other selection
// in both collections. An empty id clears the selection.
func (s *Store) Select(id string) {
	s.update(func() {
		mark := func(d core.Drawing, _ int) core.Drawing {
			d.Selected = id != "" && d.ID == id
			return d
		}
		s.persisted = lo.Map(s.persisted, mark)
		s.transient = lo.Map(s.transient, mark)
	})
}

// ClearSelection deselects every drawing
func (s *Store) ClearSelection() {
	s.Select("")
}

// SetHovered flags the drawing with id as hovered; an empty id clears hover
func (s *Store) SetHovered(id string) {
	s.Lock()
	current := ""
	for _, d := range s.visibleLocked() {
		if d.Hovered {
			current = d.ID
		}
	}
	s.Unlock()

	if current == id {
		return
	}

	s.update(func() {
		mark := func(d core.Drawing, _ int) core.Drawing {
			d.Hovered = id != "" && d.ID == id
			return d
		}
		s.persisted = lo.Map(s.persisted, mark)
		s.transient = lo.Map(s.transient, mark)
	})
}

// Remove deletes the drawing with id from the persisted and transient collections
func (s *Store) Remove(id string) {
	s.update(func() {
		match := func(d core.Drawing, _ int) bool { return d.ID == id }
		s.persisted = lo.Reject(s.persisted, match)
		s.transient = lo.Reject(s.transient, match)
		s.textBounds.Delete(id)
	})
}

// TextBounds returns the last rendered bounding box of a text drawing
func (s *Store) TextBounds(id string) (geom.Rect, bool) {
	v, ok := s.textBounds.Get(id)
	if !ok {
		return geom.Rect{}, false
	}
	return v.(geom.Rect), true
}

// SetTextBounds records the rendered bounding box of a text drawing. It does
// not request a redraw since the renderer calls it mid-frame.
func (s *Store) SetTextBounds(id string, bounds geom.Rect) {
	s.textBounds.Set(id, bounds, cache.NoExpiration)
}

// Dirty reports whether the store changed since the last MarkClean
func (s *Store) Dirty() bool {
	s.Lock()
	defer s.Unlock()
	return s.dirty
}

// MarkClean resets the dirty flag after a frame was painted
func (s *Store) MarkClean() {
	s.Lock()
	defer s.Unlock()
	s.dirty = false
}

func cloneAll(list []core.Drawing) []core.Drawing {
	return lo.Map(list, func(d core.Drawing, _ int) core.Drawing { return d.Clone() })
}

func idSet(list []core.Drawing) map[string]struct{} {
	return lo.Associate(list, func(d core.Drawing) (string, struct{}) { return d.ID, struct{}{} })
}
