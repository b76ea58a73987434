package store

import (
	"testing"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/geom"
	"github.com/raykavin/chartdraw/pkg/logger/zerolog"
	"github.com/stretchr/testify/require"
)

const btc = "BTCUSDT_1h"

func trendline(id string) core.Drawing {
	return core.Drawing{
		ID:         id,
		SourceID:   btc,
		Type:       core.DrawingTrendline,
		Points:     []core.Point{{Time: 100, Price: 10}, {Time: 200, Price: 20}},
		Properties: core.DefaultProperties(),
	}
}

func ids(list []core.Drawing) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.ID
	}
	return out
}

func newStore(t *testing.T) (*Store, *int) {
	t.Helper()
	redraws := 0
	s := New(zerolog.Nop(), WithSource(btc), WithRedraw(func() { redraws++ }))
	return s, &redraws
}

func TestStore_SettersRequestRedraw(t *testing.T) {
	s, redraws := newStore(t)

	s.SetPersisted([]core.Drawing{trendline("a")})
	s.SetTransient(nil)
	d := trendline("tmp")
	s.SetTemporary(&d)
	s.SetBarSeries([]core.Bar{{Time: 1}})

	require.Equal(t, 4, *redraws)
	require.True(t, s.Dirty())

	s.MarkClean()
	require.False(t, s.Dirty())
}

func TestStore_RoundTripCommit(t *testing.T) {
	s, _ := newStore(t)
	d := trendline("a")

	s.PushTransient(d)
	require.Equal(t, []string{"a"}, ids(s.Transient()))
	require.Equal(t, []string{"a"}, ids(s.Visible()))

	s.SetPersisted([]core.Drawing{d})
	require.Empty(t, s.Transient())
	require.Equal(t, []string{"a"}, ids(s.Visible()))
}

func TestStore_VisibleSubstitutesTransient(t *testing.T) {
	s, _ := newStore(t)
	s.SetPersisted([]core.Drawing{trendline("a"), trendline("b")})

	moved := trendline("a").Translate(50, 1)
	s.PushTransient(moved)
	s.PushTransient(trendline("c"))

	visible := s.Visible()
	require.Equal(t, []string{"a", "b", "c"}, ids(visible))
	require.Equal(t, moved.Points, visible[0].Points)
}

func TestStore_PushTransientReplacesSameID(t *testing.T) {
	s, _ := newStore(t)
	s.PushTransient(trendline("a"))
	s.PushTransient(trendline("a").Translate(10, 0))

	transient := s.Transient()
	require.Len(t, transient, 1)
	require.Equal(t, int64(110), transient[0].Points[0].Time)
}

func TestStore_ReconciliationIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	s.PushTransient(trendline("a"))
	s.PushTransient(trendline("b"))

	// acknowledgements arrive out of order
	require.True(t, s.UpsertPersisted(trendline("b")))
	require.True(t, s.UpsertPersisted(trendline("a")))
	require.True(t, s.UpsertPersisted(trendline("a")))

	require.Empty(t, s.Transient())
	require.Len(t, s.Persisted(), 2)
	require.ElementsMatch(t, []string{"a", "b"}, ids(s.Visible()))
}

func TestStore_TextBoundsPruned(t *testing.T) {
	s, _ := newStore(t)
	s.SetTextBounds("a", geom.Rect{X: 1, Y: 2, W: 30, H: 14})
	s.SetTextBounds("b", geom.Rect{W: 10, H: 10})

	s.SetPersisted([]core.Drawing{trendline("a")})

	bounds, ok := s.TextBounds("a")
	require.True(t, ok)
	require.Equal(t, 30.0, bounds.W)

	_, ok = s.TextBounds("b")
	require.False(t, ok)
}

func TestStore_SelectionIsExclusive(t *testing.T) {
	s, _ := newStore(t)
	s.SetPersisted([]core.Drawing{trendline("a"), trendline("b")})
	s.PushTransient(trendline("c"))

	s.Select("b")
	s.Select("a")

	for _, d := range s.Visible() {
		require.Equal(t, d.ID == "a", d.Selected, d.ID)
	}

	selected, ok := s.Selected()
	require.True(t, ok)
	require.Equal(t, "a", selected.ID)

	s.ClearSelection()
	_, ok = s.Selected()
	require.False(t, ok)
}

func TestStore_StoredFlagsIgnored(t *testing.T) {
	s, _ := newStore(t)

	a, b := trendline("a"), trendline("b")
	a.Selected, b.Selected, b.Hovered = true, true, true
	s.SetPersisted([]core.Drawing{a, b})

	_, ok := s.Selected()
	require.False(t, ok)
	for _, d := range s.Visible() {
		require.False(t, d.Selected, d.ID)
		require.False(t, d.Hovered, d.ID)
	}

	// a reload keeps the current selection and nothing else
	s.Select("b")
	require.True(t, s.SetPersistedFor(btc, []core.Drawing{a, b}))
	for _, d := range s.Visible() {
		require.Equal(t, d.ID == "b", d.Selected, d.ID)
	}

	c := trendline("c")
	c.Selected = true
	require.True(t, s.UpsertPersisted(c))
	selected, ok := s.Selected()
	require.True(t, ok)
	require.Equal(t, "b", selected.ID)
	found, _ := s.Find("c")
	require.False(t, found.Selected)
}

func TestStore_Hover(t *testing.T) {
	s, redraws := newStore(t)
	s.SetPersisted([]core.Drawing{trendline("a"), trendline("b")})
	before := *redraws

	s.SetHovered("b")
	s.SetHovered("b")
	require.Equal(t, before+1, *redraws)

	d, ok := s.Find("b")
	require.True(t, ok)
	require.True(t, d.Hovered)

	s.SetHovered("")
	d, _ = s.Find("b")
	require.False(t, d.Hovered)
}

func TestStore_ScopeIsolation(t *testing.T) {
	s, _ := newStore(t)
	s.SetPersisted([]core.Drawing{trendline("a")})
	s.PushTransient(trendline("b"))
	tmp := trendline("c")
	s.SetTemporary(&tmp)

	s.SetSource("ETHUSDT_1h")

	require.Empty(t, s.Persisted())
	require.Empty(t, s.Transient())
	require.Nil(t, s.Temporary())

	// late results for the previous source are ignored
	require.False(t, s.UpsertPersisted(trendline("a")))
	require.False(t, s.SetPersistedFor(btc, []core.Drawing{trendline("a")}))
	require.Empty(t, s.Visible())
}

func TestStore_Remove(t *testing.T) {
	s, _ := newStore(t)
	s.SetPersisted([]core.Drawing{trendline("a"), trendline("b")})
	s.PushTransient(trendline("a"))
	s.SetTextBounds("a", geom.Rect{W: 1, H: 1})

	s.Remove("a")

	require.Equal(t, []string{"b"}, ids(s.Visible()))
	_, ok := s.TextBounds("a")
	require.False(t, ok)
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s, _ := newStore(t)
	s.SetPersisted([]core.Drawing{trendline("a")})
	tmp := trendline("a")
	s.SetTemporary(&tmp)

	frame := s.Snapshot()
	frame.Background[0].Points[0].Price = 999
	frame.Temporary.Points[0].Price = 999

	require.Equal(t, btc, frame.Source)
	require.Equal(t, 10.0, s.Persisted()[0].Points[0].Price)
	require.Equal(t, 10.0, s.Temporary().Points[0].Price)
}
