// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/image-extractor/internal/manifest"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [manifest]",
	Short: "Check a manifest against its schema and the image directory",
	Long: `Verify validates the manifest against the embedded JSON Schema, then
checks that every document's total_images matches its image list, that pages
and indices are 1-based and unique, and that every recorded image file
exists. Defaults to the configured manifest path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("base-dir", ".", "directory relative image paths are resolved against")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	path := viper.GetString("manifest_path")
	if len(args) > 0 {
		path = args[0]
	}
	baseDir, _ := cmd.Flags().GetString("base-dir")

	if err := manifest.ValidateFile(path); err != nil {
		return err
	}
	m, err := manifest.Read(path)
	if err != nil {
		return err
	}

	problems := manifest.Verify(m, baseDir)
	for _, p := range problems {
		fmt.Fprintf(os.Stdout, "problem: %s\n", p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s) found in %s", len(problems), path)
	}

	fmt.Fprintf(os.Stdout, "ok: %s (%d documents, %d images)\n", path, m.Len(), m.TotalImages())
	return nil
}
