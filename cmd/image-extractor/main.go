// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the image-extractor CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/image-extractor/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command. Without a subcommand it runs the extraction.
var rootCmd = &cobra.Command{
	Use:   "image-extractor",
	Short: "Extract embedded images from a directory of PDFs",
	Long: `image-extractor scans a directory of PDF files, writes every embedded
image it can decode to an output directory, and records which images came
from which document and page in a JSON manifest.

Run without a subcommand to process the whole batch using the configured
directories. Documents or images that cannot be read are reported and
skipped; the manifest is always written.`,
	RunE:         runExtract,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./image-extractor.yaml or $XDG_CONFIG_HOME/image-extractor/image-extractor.yaml)")
	pf.BoolP("verbose", "v", false, "log diagnostics to stderr")
	pf.String("pdfs-dir", types.DefaultPDFsDir, "directory scanned for *.pdf files")
	pf.String("images-dir", types.DefaultImagesDir, "directory extracted images are written to")
	pf.String("manifest", types.DefaultManifestPath, "manifest output path")

	bindFlag(rootCmd, "verbose", "verbose")
	bindFlag(rootCmd, "pdfs_dir", "pdfs-dir")
	bindFlag(rootCmd, "images_dir", "images-dir")
	bindFlag(rootCmd, "manifest_path", "manifest")
}

// bindFlag ties a config key to a flag declared on cmd, persistent or local.
func bindFlag(cmd *cobra.Command, key, name string) {
	flag := cmd.PersistentFlags().Lookup(name)
	if flag == nil {
		flag = cmd.Flags().Lookup(name)
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("image-extractor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "image-extractor"))
	}

	viper.SetEnvPrefix("IMAGE_EXTRACTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns the diagnostic logger. Without --verbose only warnings
// and errors are shown.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
