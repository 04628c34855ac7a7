// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"runtime"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the image-extractor build and the PDF engine it links",
	Long: `Version prints the image-extractor build version, the pdfcpu release
used to read PDFs and extract images, and the Go toolchain it was built with.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "image-extractor %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  pdf engine: pdfcpu %s\n", model.VersionStr)
		fmt.Fprintf(cmd.OutOrStdout(), "  go:         %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
