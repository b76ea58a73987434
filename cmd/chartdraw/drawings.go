package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	listSource  string
	listTypes   []string
	importFile  string
	clearSource string
)

func buildListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the drawings of a source, or every source when none is given",
		RunE:  runList,
	}

	listCmd.Flags().StringVarP(&listSource, "source", "s", "", "Source id (e.g. BTCUSDT_1h)")
	listCmd.Flags().StringSliceVarP(&listTypes, "type", "t", nil,
		"Only show drawings of these types ("+strings.Join(lo.Map(core.AllTypes(), func(t core.DrawingType, _ int) string {
			return string(t)
		}), ", ")+")")

	return listCmd
}

func runList(cmd *cobra.Command, _ []string) error {
	backend, err := openStorage()
	if err != nil {
		return err
	}
	defer closeStorage(backend)

	ctx := contextOrBackground(cmd)
	table := tablewriter.NewWriter(cmd.OutOrStdout())

	if listSource == "" {
		sources, err := backend.Sources(ctx)
		if err != nil {
			return err
		}

		table.SetHeader([]string{"Source", "Drawings"})
		total := 0
		for _, source := range sources {
			drawings, err := backend.Load(ctx, source)
			if err != nil {
				return err
			}
			total += len(drawings)
			table.Append([]string{source, strconv.Itoa(len(drawings))})
		}
		table.SetFooter([]string{"Total", strconv.Itoa(total)})
		table.Render()
		return nil
	}

	drawings, err := backend.Load(ctx, listSource)
	if err != nil {
		return err
	}

	if len(listTypes) > 0 {
		types := lo.Map(listTypes, func(t string, _ int) core.DrawingType { return core.DrawingType(t) })
		for _, t := range types {
			if _, _, err := t.PointCount(); err != nil {
				return err
			}
		}
		drawings = core.Apply(drawings, core.WithType(types...))
	}

	table.SetHeader([]string{"ID", "Type", "Points", "Color", "Text", "Updated"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(lo.Map(drawings, func(d core.Drawing, _ int) []string {
		return []string{
			d.ID,
			string(d.Type),
			formatPoints(d.Points),
			d.Properties.Color,
			d.Properties.Text,
			d.UpdatedAt.Format(time.DateTime),
		}
	}))
	table.Render()

	return nil
}

func formatPoints(points []core.Point) string {
	const shown = 3
	parts := lo.Map(lo.Slice(points, 0, shown), func(p core.Point, _ int) string {
		return fmt.Sprintf("%s@%g", time.Unix(p.Time, 0).UTC().Format(time.DateTime), p.Price)
	})
	if len(points) > shown {
		parts = append(parts, fmt.Sprintf("+%d", len(points)-shown))
	}
	return strings.Join(parts, " ")
}

func buildImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import drawings from a JSON or YAML file",
		RunE:  runImport,
	}

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "File with a list of drawings (.json, .yaml or .yml)")
	_ = importCmd.MarkFlagRequired("file")

	return importCmd
}

// readDrawings decodes a list of drawings, picking the format by extension
func readDrawings(path string) ([]core.Drawing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var drawings []core.Drawing
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &drawings)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &drawings)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return drawings, nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	drawings, err := readDrawings(importFile)
	if err != nil {
		return err
	}

	backend, err := openStorage()
	if err != nil {
		return err
	}
	defer closeStorage(backend)

	ctx := contextOrBackground(cmd)
	bar := progressbar.Default(int64(len(drawings)), "importing")
	now := time.Now().UTC()

	imported := 0
	for _, d := range drawings {
		if err := d.Validate(); err != nil {
			log.WithError(err).WithField("id", d.ID).Warn("skipping invalid drawing")
			_ = bar.Add(1)
			continue
		}

		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = now
		}

		if err := backend.Save(ctx, d); err != nil {
			return fmt.Errorf("saving %s: %w", d.ID, err)
		}
		imported++
		_ = bar.Add(1)
	}

	if err := bar.Close(); err != nil {
		log.WithError(err).Warn("closing progress bar")
	}

	log.WithFields(map[string]any{
		"imported": imported,
		"skipped":  len(drawings) - imported,
	}).Info("import finished")

	return nil
}

func buildClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every drawing of a source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := openStorage()
			if err != nil {
				return err
			}
			defer closeStorage(backend)

			if err := backend.Clear(contextOrBackground(cmd), clearSource); err != nil {
				return err
			}

			log.WithField("source", clearSource).Info("drawings cleared")
			return nil
		},
	}

	clearCmd.Flags().StringVarP(&clearSource, "source", "s", "", "Source id (e.g. BTCUSDT_1h)")
	_ = clearCmd.MarkFlagRequired("source")

	return clearCmd
}
