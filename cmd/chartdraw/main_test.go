package main

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/feed"
	"github.com/raykavin/chartdraw/pkg/storage"
	"github.com/stretchr/testify/require"
)

const drawingsYAML = `
- id: up-trend
  source_id: BTCUSDT_1m
  type: trendline
  points:
    - {time: 60, price: 100}
    - {time: 600, price: 105}
  properties:
    color: "#2962FF"
    line_width: 2
- id: broken
  source_id: BTCUSDT_1m
  type: trendline
  points: []
  properties:
    color: red
`

type workspace struct {
	dir    string
	config string
	db     string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()

	dir := t.TempDir()
	ws := workspace{
		dir:    dir,
		config: filepath.Join(dir, "chartdraw.yaml"),
		db:     filepath.Join(dir, "drawings.db"),
	}

	doc := fmt.Sprintf("log:\n  level: error\n  colored: false\nstorage:\n  driver: buntdb\n  path: %s\nchart:\n  width: 240\n  height: 160\n", ws.db)
	require.NoError(t, os.WriteFile(ws.config, []byte(doc), 0o600))

	return ws
}

func (ws workspace) run(t *testing.T, args ...string) string {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", ws.config, "--env", filepath.Join(ws.dir, ".env")))

	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func (ws workspace) stored(t *testing.T, source string) []core.Drawing {
	t.Helper()

	backend, err := storage.FromFile(ws.db)
	require.NoError(t, err)
	defer backend.Close()

	drawings, err := backend.Load(context.Background(), source)
	require.NoError(t, err)
	return drawings
}

func TestCLI_ImportListClear(t *testing.T) {
	ws := newWorkspace(t)

	file := filepath.Join(ws.dir, "drawings.yaml")
	require.NoError(t, os.WriteFile(file, []byte(drawingsYAML), 0o600))

	ws.run(t, "import", "--file", file)
	stored := ws.stored(t, "BTCUSDT_1m")
	require.Len(t, stored, 1)
	require.Equal(t, "up-trend", stored[0].ID)
	require.False(t, stored[0].CreatedAt.IsZero())

	out := ws.run(t, "list")
	require.Contains(t, out, "BTCUSDT_1m")

	out = ws.run(t, "list", "--source", "BTCUSDT_1m")
	require.Contains(t, out, "up-trend")
	require.NotContains(t, out, "broken")

	out = ws.run(t, "list", "--source", "BTCUSDT_1m", "--type", "ray,rectangle")
	require.NotContains(t, out, "up-trend")

	out = ws.run(t, "list", "--source", "BTCUSDT_1m", "--type", "trendline")
	require.Contains(t, out, "up-trend")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"list", "--source", "BTCUSDT_1m", "--type", "spiral", "--config", ws.config})
	require.ErrorIs(t, cmd.Execute(), core.ErrUnknownType)

	ws.run(t, "clear", "--source", "BTCUSDT_1m")
	require.Empty(t, ws.stored(t, "BTCUSDT_1m"))
}

func TestCLI_ImportRejectsUnknownFormat(t *testing.T) {
	ws := newWorkspace(t)

	file := filepath.Join(ws.dir, "drawings.txt")
	require.NoError(t, os.WriteFile(file, []byte("[]"), 0o600))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"import", "--file", file, "--config", ws.config})
	require.ErrorContains(t, cmd.Execute(), "unsupported file type")
}

func TestCLI_Render(t *testing.T) {
	ws := newWorkspace(t)

	bars := make([]core.Bar, 0, 40)
	for i := int64(0); i < 40; i++ {
		price := 100 + float64(i%6)
		bars = append(bars, core.Bar{Time: i * 60, Open: price, Close: price + 1, Low: price - 2, High: price + 3})
	}

	csvPath := filepath.Join(ws.dir, "bars.csv")
	f, err := os.Create(csvPath)
	require.NoError(t, err)
	require.NoError(t, feed.WriteCSV(f, bars, 4))
	require.NoError(t, f.Close())

	file := filepath.Join(ws.dir, "drawings.yaml")
	require.NoError(t, os.WriteFile(file, []byte(drawingsYAML), 0o600))
	ws.run(t, "import", "--file", file)

	output := filepath.Join(ws.dir, "snapshot.png")
	ws.run(t, "render", "--source", "BTCUSDT_1m", "--csv", csvPath, "--output", output)

	data, err := os.Open(output)
	require.NoError(t, err)
	defer data.Close()

	img, err := png.Decode(data)
	require.NoError(t, err)
	require.Equal(t, 240, img.Bounds().Dx())
	require.Equal(t, 160, img.Bounds().Dy())
}

func TestCLI_Init(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "chartdraw.yaml")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", "--config", path, "--env", filepath.Join(dir, ".env")})
	require.NoError(t, cmd.Execute())
	require.FileExists(t, path)

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", "--config", path})
	require.ErrorContains(t, cmd.Execute(), "already exists")
}
