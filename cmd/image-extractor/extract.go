// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/image-extractor/internal/extract"
	"github.com/pdiddy/image-extractor/internal/pdfsource"
	"github.com/pdiddy/image-extractor/internal/report"
	"github.com/pdiddy/image-extractor/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract images from every PDF in the input directory",
	Long: `Extract opens each *.pdf file directly inside the input directory, writes
its embedded images as <stem>_page<N>_img<M>.<ext>, and records them in the
manifest. This is what the root command runs when given no subcommand.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("format", "", "manifest format: json or yaml (default: from the manifest extension)")
	pf.Int("preview", types.DefaultPreviewLimit, "number of documents shown in the summary")
	pf.Bool("prune", false, "delete generated images no longer referenced by the manifest")
	pf.Bool("relaxed", true, "open PDFs with relaxed validation")
	pf.String("report", "", "also write a Markdown report to this path")

	bindFlag(rootCmd, "manifest_format", "format")
	bindFlag(rootCmd, "preview_limit", "preview")
	bindFlag(rootCmd, "prune", "prune")
	bindFlag(rootCmd, "relaxed", "relaxed")
	bindFlag(rootCmd, "report_path", "report")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := extractionConfig()
	if err != nil {
		return err
	}

	logger := newLogger()
	logger.Debug("starting extraction",
		"pdfs_dir", cfg.PDFsDir, "images_dir", cfg.ImagesDir, "manifest", cfg.ManifestPath)

	res, err := extract.Run(cmd.Context(), pdfsource.NewPDFCPU(cfg.Relaxed), cfg, os.Stdout, logger)
	if err != nil {
		return err
	}

	summary := report.FromResult(res, cfg)
	report.Text(os.Stdout, summary)

	if cfg.ReportPath != "" {
		if err := writeMarkdownReport(cfg.ReportPath, summary); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "\nReport written to: %s\n", cfg.ReportPath)
	}
	return nil
}

// extractionConfig assembles the extraction settings from flags, env and
// the config file.
func extractionConfig() (types.ExtractionConfig, error) {
	cfg := types.ExtractionConfig{
		PDFsDir:      viper.GetString("pdfs_dir"),
		ImagesDir:    viper.GetString("images_dir"),
		ManifestPath: viper.GetString("manifest_path"),
		PreviewLimit: viper.GetInt("preview_limit"),
		Prune:        viper.GetBool("prune"),
		Relaxed:      viper.GetBool("relaxed"),
		ReportPath:   viper.GetString("report_path"),
	}

	if raw := viper.GetString("manifest_format"); raw != "" {
		format, err := types.ParseManifestFormat(raw)
		if err != nil {
			return cfg, err
		}
		cfg.ManifestFormat = format
	} else if cfg.ManifestPath != "" {
		cfg.ManifestFormat = types.FormatForPath(cfg.ManifestPath)
	}
	return cfg.WithDefaults(), nil
}

func writeMarkdownReport(path string, s report.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := report.Markdown(f, s); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}
