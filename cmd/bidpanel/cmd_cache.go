package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var cacheDir string

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage on-disk evaluation caches",
		Long: `Manage the on-disk caches bidpanel keeps between runs.

The local vector store holds embedded knowledge-base fragments for specs that
use a local search backend. Connector payload caching is in-process and
expires on its own; use 'run --no-cache' to bypass it for one run.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the local vector store",
		Long: `Clear the local vector store.

This removes the persisted embeddings directory. The next run against a local
search backend re-embeds its documents from scratch.`,
		RunE: cacheClearE,
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", ".bidpanel-cache", "Cache directory to clear")

	return cmd
}

func cacheClearE(cmd *cobra.Command, args []string) error {
	// Resolve to absolute path
	absDir, err := filepath.Abs(cacheDir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	if err := os.RemoveAll(absDir); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Printf("Cache cleared: %s\n", absDir)
	return nil
}
