package storage

import (
	"context"
	"testing"
	"time"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/stretchr/testify/require"
)

func sample(id, source string, created int64) core.Drawing {
	props := core.DefaultProperties()
	props.LineStyle = core.LineDotted
	props.ShowBackground = true
	props.Text = "label"

	return core.Drawing{
		ID:         id,
		SourceID:   source,
		Type:       core.DrawingRectangle,
		Points:     []core.Point{{Time: 100, Price: 10.5}, {Time: 200, Price: 20.25}},
		Properties: props,
		Selected:   true,
		Hovered:    true,
		CreatedAt:  time.UnixMilli(created).UTC(),
		UpdatedAt:  time.UnixMilli(created + 1).UTC(),
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	bunt, err := FromMemory()
	require.NoError(t, err)
	lite, err := FromSQLite(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, bunt.Close())
		require.NoError(t, lite.Close())
	})

	return map[string]Backend{"buntdb": bunt, "sqlite": lite}
}

func TestBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			original := sample("a", "BTCUSDT_1h", 1_700_000_000_000)
			require.NoError(t, backend.Save(ctx, original))

			loaded, err := backend.Load(ctx, "BTCUSDT_1h")
			require.NoError(t, err)
			require.Len(t, loaded, 1)

			got := loaded[0]
			require.False(t, got.Hovered)
			require.True(t, got.CreatedAt.Equal(original.CreatedAt))
			require.True(t, got.UpdatedAt.Equal(original.UpdatedAt))

			original.Hovered = false
			got.CreatedAt, got.UpdatedAt = original.CreatedAt, original.UpdatedAt
			require.Equal(t, original, got)
		})
	}
}

func TestBackend_SaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			d := sample("a", "BTCUSDT_1h", 1_700_000_000_000)
			require.NoError(t, backend.Save(ctx, d))

			d.Points[0].Price = 99
			require.NoError(t, backend.Save(ctx, d))

			loaded, err := backend.Load(ctx, "BTCUSDT_1h")
			require.NoError(t, err)
			require.Len(t, loaded, 1)
			require.Equal(t, 99.0, loaded[0].Points[0].Price)
		})
	}
}

func TestBackend_ScopedBySource(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, backend.Save(ctx, sample("b", "BTCUSDT_1h", 2000)))
			require.NoError(t, backend.Save(ctx, sample("a", "BTCUSDT_1h", 1000)))
			require.NoError(t, backend.Save(ctx, sample("e", "ETHUSDT_1h", 1500)))
			require.NoError(t, backend.Save(ctx, sample("x", "btcusdt_1h", 1200)))

			btc, err := backend.Load(ctx, "BTCUSDT_1h")
			require.NoError(t, err)
			require.Len(t, btc, 2)
			require.Equal(t, "a", btc[0].ID)
			require.Equal(t, "b", btc[1].ID)

			sources, err := backend.Sources(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"BTCUSDT_1h", "ETHUSDT_1h", "btcusdt_1h"}, sources)

			require.NoError(t, backend.Clear(ctx, "BTCUSDT_1h"))
			btc, err = backend.Load(ctx, "BTCUSDT_1h")
			require.NoError(t, err)
			require.Empty(t, btc)

			eth, err := backend.Load(ctx, "ETHUSDT_1h")
			require.NoError(t, err)
			require.Len(t, eth, 1)
		})
	}
}

func TestBackend_Delete(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, backend.Save(ctx, sample("a", "BTCUSDT_1h", 1000)))
			require.NoError(t, backend.Delete(ctx, "a"))
			require.ErrorIs(t, backend.Delete(ctx, "a"), core.ErrNotFound)

			loaded, err := backend.Load(ctx, "BTCUSDT_1h")
			require.NoError(t, err)
			require.Empty(t, loaded)
		})
	}
}

func TestDrawingModel_Conversion(t *testing.T) {
	d := sample("a", "BTCUSDT_1h", 1000)
	d.Hovered = false

	model, err := toModel(d)
	require.NoError(t, err)
	require.Equal(t, "rectangle", model.Type)
	require.NotContains(t, model.Properties, "hovered")

	back, err := model.toDrawing()
	require.NoError(t, err)
	require.Equal(t, d, back)

	model.Points = "{"
	_, err = model.toDrawing()
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	b, err := Open(DriverBunt, "", "")
	require.NoError(t, err)
	require.IsType(t, &BuntStorage{}, b)
	require.NoError(t, b.Close())

	s, err := Open(DriverSQLite, ":memory:", "")
	require.NoError(t, err)
	require.IsType(t, &SQLiteStorage{}, s)
	require.NoError(t, s.Close())

	_, err = Open(DriverPostgres, "", "")
	require.Error(t, err)

	_, err = Open("mongo", "", "")
	require.Error(t, err)
}
