// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/image-extractor/internal/catalog"
	"github.com/pdiddy/image-extractor/internal/manifest"
	"github.com/pdiddy/image-extractor/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Index extracted images in a SQLite catalog (store, list)",
	Long: `Catalog keeps a local SQLite index of the images named in the manifest,
with file size, pixel dimensions and camera EXIF tags, so images can be
looked up by document and page.`,
}

// --- store subcommand ---

var catalogStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest the manifest into the catalog",
	Long: `Store reads the manifest, inspects every image file it names, and
replaces the catalog contents with the result. Documents no longer in the
manifest are removed.`,
	Args: cobra.NoArgs,
	RunE: runCatalogStore,
}

func runCatalogStore(cmd *cobra.Command, args []string) error {
	manifestPath := viper.GetString("manifest_path")
	m, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}

	store, err := catalog.NewStore(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), m, manifestPath, os.Stdout)
	if err != nil {
		return err
	}
	newLogger().Debug("catalog run recorded", "run_id", summary.RunID)
	return nil
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued images",
	Long: `List prints catalogued images ordered by document, page and index.
Filter with --document and --page.`,
	Args: cobra.NoArgs,
	RunE: runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	document, _ := cmd.Flags().GetString("document")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := catalog.NewStore(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.List(cmd.Context(), catalog.Query{Document: document, Page: page, Limit: limit})
	if err != nil {
		return err
	}
	return formatListOutput(rows, jsonOutput)
}

func formatListOutput(rows []catalog.ImageRow, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []catalog.ImageRow{}
		}
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-30s  %-4s  %-3s  %-40s  %-11s  %-6s  %s\n",
		"Document", "Page", "Img", "Filename", "Size", "Format", "Bytes")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 112))

	for _, r := range rows {
		doc := r.Document
		if len(doc) > 30 {
			doc = doc[:27] + "..."
		}
		name := r.Filename
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		dims := "-"
		if r.Width > 0 {
			dims = fmt.Sprintf("%dx%d", r.Width, r.Height)
		}
		fmt.Fprintf(os.Stdout, "%-30s  %-4d  %-3d  %-40s  %-11s  %-6s  %d\n",
			doc, r.Page, r.Index, name, dims, r.Format, r.SizeBytes)
	}

	fmt.Fprintf(os.Stdout, "\n%d images\n", len(rows))
	return nil
}

// --- shared helpers ---

func catalogConfig(cmd *cobra.Command) types.CatalogConfig {
	baseDir, _ := cmd.Flags().GetString("base-dir")
	return types.CatalogConfig{
		DBPath:  viper.GetString("catalog.db_path"),
		BaseDir: baseDir,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("db", types.DefaultCatalogPath, "catalog database path")
	catalogCmd.PersistentFlags().String("base-dir", "", "directory relative image paths are resolved against")
	bindFlag(catalogCmd, "catalog.db_path", "db")

	// List flags.
	catalogListCmd.Flags().String("document", "", "filter by source PDF filename")
	catalogListCmd.Flags().Int("page", 0, "filter by 1-based page number")
	catalogListCmd.Flags().Int("limit", 0, "maximum rows (0 = default)")
	catalogListCmd.Flags().Bool("json", false, "output rows as JSON")

	// Wire subcommands.
	catalogCmd.AddCommand(catalogStoreCmd)
	catalogCmd.AddCommand(catalogListCmd)

	rootCmd.AddCommand(catalogCmd)
}
