package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jobrunner/layerscope/internal/app"
	"github.com/jobrunner/layerscope/internal/config"
	"github.com/jobrunner/layerscope/internal/domain"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List the layers found in storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newCLIApp(cmd.Context())
		if err != nil {
			return err
		}

		layers, err := a.Service.Layers(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPARTS\tSIZE")
		for _, l := range layers {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.ID, l.DisplayName, l.PartCount(), domain.HumanSize(l.TotalBytes))
		}
		return tw.Flush()
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <layer>",
	Short: "Print a layer summary and its map viewport as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newCLIApp(cmd.Context())
		if err != nil {
			return err
		}

		summary, err := a.Service.Summary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		view, err := a.Service.Map(cmd.Context(), args[0], 0)
		if err != nil {
			return err
		}

		geometries := make(map[string]int, len(summary.GeometryCounts))
		for kind, n := range summary.GeometryCounts {
			geometries[string(kind)] = n
		}
		attributes := make([]string, len(summary.Attributes))
		for i, attr := range summary.Attributes {
			attributes[i] = attr.Name + ":" + string(attr.Type)
		}

		report := map[string]interface{}{
			"id":            summary.Layer.ID,
			"name":          summary.Layer.DisplayName,
			"parts":         summary.Layer.Parts,
			"size":          domain.HumanSize(summary.Layer.TotalBytes),
			"features":      summary.FeatureCount,
			"geometries":    geometries,
			"crs":           summary.CRS,
			"attributes":    attributes,
			"normalization": view.Normalization,
			"shown":         view.Collection.Len(),
			"viewport":      view.Viewport,
		}
		if view.Reason != "" {
			report["reason"] = view.Reason
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <layer>",
	Short: "Write a layer as WGS 84 GeoJSON to stdout or a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newCLIApp(cmd.Context())
		if err != nil {
			return err
		}

		doc, err := a.Service.Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		}
		if output == "-" {
			output = domain.ExportFileName(args[0])
		}
		if err := os.WriteFile(output, doc, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", output, domain.HumanSize(int64(len(doc))))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", `output file; "-" uses <layer>_wgs84.geojson`)
}

// newCLIApp wires the application for a one-shot command. Logs go to
// stderr so stdout carries only command output.
func newCLIApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Watch.Enabled = false

	logger := setupLogger(cfg.Logging, os.Stderr)
	return app.New(ctx, cfg, logger)
}
