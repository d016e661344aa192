package main

import (
	"fmt"
	"path/filepath"

	"github.com/punjabi-nlp/bpetok/internal/cache"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the training cache",
		Long: `Manage the training cache.

The cache stores trained tokenizers so that training again on the same
corpus sample with the same vocabulary size is instant. Entries are keyed by
the sampled text, the vocabulary size and the artifact format version.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the training cache",
		Long: `Clear all cached tokenizers.

The directory is only removed when it holds nothing but cache entries.`,
		Args: cobra.NoArgs,
		RunE: cacheClearE,
	}

	cmd.Flags().String("cache-dir", "", "Cache directory to clear (default: cache.dir from config)")

	return cmd
}

func cacheClearE(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.Cache.Dir
	if cmd.Flags().Changed("cache-dir") {
		if dir, err = cmd.Flags().GetString("cache-dir"); err != nil {
			return err
		}
	}

	// Resolve to absolute path
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c := cache.New(absDir)
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir)
	return nil
}
