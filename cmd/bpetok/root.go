package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/punjabi-nlp/bpetok/cmd/bpetok/tokens"
	"github.com/punjabi-nlp/bpetok/internal/projectconfig"
	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bpetok",
		Short: "bpetok - byte-level BPE tokenizer",
		Long: `bpetok trains a byte-level Byte Pair Encoding tokenizer on a text corpus
and uses it to encode text to token ids and decode ids back to text.

Settings are read from .bpetok.yaml (searched upwards from the working
directory), then BPETOK_* environment variables, then command-line flags.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newTrainCommand())
	cmd.AddCommand(newEncodeCommand())
	cmd.AddCommand(newDecodeCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(tokens.NewCommand())

	return cmd
}

func execute(ctx context.Context) error {
	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads .bpetok.yaml relative to the working directory.
func loadConfig() (*projectconfig.ProjectConfig, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}
	return projectconfig.Load(wd)
}

// addModelFlag registers the --model flag shared by commands that need a
// trained tokenizer.
func addModelFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Tokenizer artifact (default: artifact.dir/artifact.file from config)")
}

// loadTokenizer loads the artifact named by --model, or the configured one.
func loadTokenizer(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) (*bpe.Tokenizer, error) {
	path, err := cmd.Flags().GetString("model")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.ArtifactPath()
	}

	tok, err := bpe.Load(path)
	if errors.Is(err, bpe.ErrArtifactNotFound) {
		return nil, fmt.Errorf("%w (run `bpetok train` first)", err)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded tokenizer", "path", path, "vocabSize", tok.VocabSize())
	return tok.WithCache(cfg.EncodeCacheSize()), nil
}

// readInput joins args with spaces, or reads all of stdin when there are
// none. A single trailing newline from stdin is dropped.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}

func validateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown format %q (want %s)", bpe.ErrInvalidConfig, format, strings.Join(allowed, " | "))
}
