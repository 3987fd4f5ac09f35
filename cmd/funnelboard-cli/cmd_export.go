package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/funnelboard/funnelboard/client"
	"github.com/funnelboard/funnelboard/internal/export"
)

// maxInputSize caps what the CLI reads from stdin.
const maxInputSize = 8 << 20

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func newExportCmd() *cobra.Command {
	var (
		outputPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "export <funnel-id>",
		Short: "Export a funnel to a bundle file",
		Long: `Export a funnel's canvas to a portable bundle. Bundles are snappy-compressed
by default; --json writes plain indented JSON instead. Use 'funnelboard import' to restore.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				out  []byte
				data *client.ExportFormat
				err  error
			)
			if asJSON {
				data, err = apiClient.Funnels.ExportJSON(ctx, args[0])
				if err == nil {
					out, err = json.MarshalIndent(data, "", "  ")
				}
			} else {
				out, err = apiClient.Funnels.Export(ctx, args[0])
				if err == nil {
					data, err = export.Unmarshal(out)
				}
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if outputPath == "" {
				outputPath = exportFileName(data.Name, time.Now(), asJSON)
			}

			if outputPath == "-" {
				_, err = os.Stdout.Write(out)
				return err
			}

			if err := os.WriteFile(outputPath, out, 0o600); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Exported %d nodes, %d edges to %s\n",
				data.Stats.NodeCount, data.Stats.EdgeCount, outputPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: <name>-<timestamp>.funnel, use - for stdout)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write plain JSON instead of a compressed bundle")

	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		name   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a funnel from an exported bundle or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return fmt.Errorf("reading import file: %w", err)
			}

			if _, err := export.Unmarshal(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			res, err := apiClient.Funnels.Import(cmd.Context(), data, client.ImportOptions{Name: name, DryRun: dryRun})
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if res.DryRun {
				fmt.Fprintf(os.Stderr, "Dry run: %d nodes, %d edges would be imported\n", res.Stats.NodeCount, res.Stats.EdgeCount)
				output(res, "")
				return nil
			}

			output(res, res.Funnel.ID.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Override the funnel name stored in the export")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without creating anything")

	return cmd
}

func exportFileName(name string, at time.Time, asJSON bool) string {
	base := unsafeFileChars.ReplaceAllString(name, "-")
	if base == "" || base == "-" {
		base = "funnel"
	}
	ext := export.FileExt
	if asJSON {
		ext = ".json"
	}
	return fmt.Sprintf("%s-%s%s", base, at.UTC().Format("20060102T150405Z"), ext)
}

func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds %d bytes", maxInputSize)
	}
	return data, nil
}
