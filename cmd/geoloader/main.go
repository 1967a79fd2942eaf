// Command geoloader inspects geospatial vector files from the command
// line: parses Shapefile component sets and DXF drawings, reports the
// detected coordinate system, and converts coordinates between the
// supported systems.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benj01/geoloader/pkg/geoloader"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "geoloader",
		Short:         "Inspect and convert geospatial vector files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(infoCommand())
	root.AddCommand(detectCommand())
	root.AddCommand(transformCommand())
	return root
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.shp|file.dxf>",
		Short: "Parse a file and print features, bounds, and issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := load(args[0])
			if err != nil {
				return err
			}
			printSummary(cmd, dataset)

			for _, issue := range dataset.Issues() {
				location := ""
				if issue.Record != "" {
					location = " (record " + issue.Record + ")"
				}
				cmd.Printf("  %s: %s%s\n", issue.Severity, issue.Message, location)
			}
			return nil
		},
	}
}

func detectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file.shp|file.dxf>",
		Short: "Report the detected coordinate system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, err := load(args[0])
			if err != nil {
				return err
			}
			d := dataset.Detection()
			cmd.Printf("system:     %s\n", d.System)
			if d.System != geoloader.SystemNone {
				cmd.Printf("epsg:       %d\n", d.System.EPSG())
			}
			cmd.Printf("confidence: %.2f\n", d.Confidence)
			cmd.Printf("method:     %s\n", d.Method)
			cmd.Printf("reasoning:  %s\n", d.Reasoning)
			for _, alt := range d.Alternatives {
				cmd.Printf("alternative: %s (%.2f)\n", alt.System, alt.Confidence)
			}
			return nil
		},
	}
}

func transformCommand() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "transform <file.shp|file.dxf>",
		Short: "Parse a file and convert its coordinates to another system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, ok := geoloader.SystemFromName(target)
			if !ok {
				return fmt.Errorf("unknown target system %q (try LV95, LV03, WGS84, WebMercator, or an EPSG code)", target)
			}

			loader := geoloader.NewLoader()
			dataset, err := loadWith(loader, args[0])
			if err != nil {
				return err
			}
			if err := loader.Transform(dataset, system); err != nil {
				return err
			}
			printSummary(cmd, dataset)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "to", "WGS84", "target coordinate system")
	return cmd
}

func load(path string) (*geoloader.Dataset, error) {
	return loadWith(geoloader.NewLoader(), path)
}

func loadWith(loader *geoloader.Loader, path string) (*geoloader.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dxf":
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return loader.ParseDXF(buf)
	case ".shp":
		input, err := readShapefileSet(path)
		if err != nil {
			return nil, err
		}
		return loader.ParseShapefile(input)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// readShapefileSet loads the .shp file and its companions by swapping the
// extension. The .prj file is optional; .shx and .dbf are required and
// their absence surfaces as a parse error with the full set listed.
func readShapefileSet(path string) (geoloader.ShapefileInput, error) {
	var input geoloader.ShapefileInput

	shp, err := os.ReadFile(path)
	if err != nil {
		return input, err
	}
	input.SHP = shp

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if buf, err := os.ReadFile(base + ".shx"); err == nil {
		input.SHX = buf
	}
	if buf, err := os.ReadFile(base + ".dbf"); err == nil {
		input.DBF = buf
	}
	if buf, err := os.ReadFile(base + ".prj"); err == nil {
		input.PRJ = buf
	}
	return input, nil
}

func printSummary(cmd *cobra.Command, dataset *geoloader.Dataset) {
	cmd.Printf("format:   %s\n", dataset.Format())
	cmd.Printf("features: %d\n", dataset.FeatureCount())
	cmd.Printf("system:   %s (%.2f via %s)\n",
		dataset.Detection().System, dataset.Detection().Confidence, dataset.Detection().Method)

	b := dataset.Bounds()
	cmd.Printf("bounds:   [%g %g %g %g]\n", b.MinX, b.MinY, b.MaxX, b.MaxY)

	counts := make(map[geoloader.GeometryType]int)
	for _, f := range dataset.Features() {
		counts[f.Geometry().Type]++
	}
	for geometryType, n := range counts {
		cmd.Printf("  %s: %d\n", geometryType, n)
	}
}
