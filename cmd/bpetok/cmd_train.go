package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/punjabi-nlp/bpetok/internal/cache"
	"github.com/punjabi-nlp/bpetok/internal/projectconfig"
	"github.com/punjabi-nlp/bpetok/internal/spinner"
	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train [corpus]",
		Short: "Learn a BPE vocabulary from a text corpus",
		Long: `Train a byte-level BPE tokenizer on a UTF-8 text file and save it.

Training starts from the 256 byte tokens and repeatedly merges the most
frequent adjacent pair until the vocabulary reaches --max-vocab-size or no
pairs are left. Only the first --sample-size characters of the corpus are
used (0 trains on everything).

With the cache enabled, a previous run on the same sample and vocabulary
size is reused instead of training again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTrain,
	}

	cmd.Flags().Int("max-vocab-size", projectconfig.DefaultMaxVocabSize, "Target vocabulary size, including the 256 byte tokens")
	cmd.Flags().Int("sample-size", projectconfig.DefaultSampleSize, "Characters of the corpus to train on (0 = all)")
	cmd.Flags().StringP("output", "o", "", "Where to save the tokenizer (default: artifact.dir/artifact.file from config)")
	cmd.Flags().String("cache-dir", "", "Enable the training cache in this directory")
	cmd.Flags().Bool("no-cache", false, "Disable the training cache")
	cmd.MarkFlagsMutuallyExclusive("cache-dir", "no-cache")

	return cmd
}

// trainSettings is the merged result of config file, environment and flags.
type trainSettings struct {
	corpusPath string
	outputPath string
	cacheDir   string // empty when caching is off
	opts       bpe.TrainOptions
}

func resolveTrainSettings(cmd *cobra.Command, args []string, cfg *projectconfig.ProjectConfig) (*trainSettings, error) {
	flags := cmd.Flags()
	if flags.Changed("max-vocab-size") {
		v, err := flags.GetInt("max-vocab-size")
		if err != nil {
			return nil, err
		}
		cfg.Train.MaxVocabSize = v
	}
	if flags.Changed("sample-size") {
		v, err := flags.GetInt("sample-size")
		if err != nil {
			return nil, err
		}
		cfg.Train.SampleSize = &v
	}

	s := &trainSettings{
		corpusPath: cfg.Train.Corpus,
		outputPath: cfg.ArtifactPath(),
		opts:       cfg.TrainOptions(),
	}
	if len(args) == 1 {
		s.corpusPath = args[0]
	}
	if flags.Changed("output") {
		v, err := flags.GetString("output")
		if err != nil {
			return nil, err
		}
		s.outputPath = v
	}

	if cfg.CacheEnabled() {
		s.cacheDir = cfg.Cache.Dir
	}
	if flags.Changed("cache-dir") {
		v, err := flags.GetString("cache-dir")
		if err != nil {
			return nil, err
		}
		s.cacheDir = v
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		s.cacheDir = ""
	}
	return s, nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := resolveTrainSettings(cmd, args, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := message.NewPrinter(language.English)

	var sp *spinner.Spinner
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && spinner.Enabled(f) {
		s.opts.Observer = bpe.ObserverFunc(func(ev bpe.MergeEvent) {
			sp.Update(p.Sprintf("Training: merge %d/%d %v -> %d (count %d)",
				ev.Index+1, ev.Total, ev.Merge.Pair, ev.Merge.ID, ev.Count))
		})
	}

	// Validate options before touching the corpus or the cache.
	trainer, err := bpe.NewTrainer(s.opts)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(s.corpusPath)
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}
	corpus := string(data)

	var c *cache.Cache
	var key string
	if s.cacheDir != "" {
		c = cache.New(s.cacheDir)
		if key, err = cache.CacheKey(corpus, s.opts); err != nil {
			return fmt.Errorf("computing cache key: %w", err)
		}
		if tok, ok := c.Get(key); ok {
			slog.Debug("Training cache hit", "key", key)
			if err := tok.Save(s.outputPath); err != nil {
				return err
			}
			p.Fprintf(out, "Loaded tokenizer from cache (%d merges, vocabulary %d)\n", tok.NumMerges(), tok.VocabSize())
			p.Fprintf(out, "Saved to %s\n", filepath.Clean(s.outputPath))
			return nil
		}
	}

	if s.opts.Observer != nil {
		sp = spinner.Start(cmd.ErrOrStderr(), "Training...")
	}
	tok, summary, err := trainer.Train(cmd.Context(), corpus)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return err
	}

	if err := tok.Save(s.outputPath); err != nil {
		return err
	}
	if c != nil {
		if err := c.Put(key, tok); err != nil {
			// A failed cache write doesn't invalidate the trained artifact.
			slog.Warn("Failed to cache tokenizer", "error", err)
		}
	}

	printTrainSummary(p, out, summary)
	p.Fprintf(out, "Saved to %s\n", filepath.Clean(s.outputPath))
	return nil
}

func printTrainSummary(p *message.Printer, w io.Writer, s bpe.Summary) {
	p.Fprintf(w, "Trained on %d characters (%d bytes)\n", s.InputChars, s.InputBytes)
	p.Fprintf(w, "Merges:      %d\n", s.Merges)
	p.Fprintf(w, "Vocabulary:  %d\n", s.VocabSize)
	p.Fprintf(w, "Compression: %.2fX (%d bytes -> %d tokens)\n",
		s.CompressionRatio(), s.InputBytes, s.OutputTokens)
	if s.Exhausted {
		fmt.Fprintln(w, "Stopped early: no adjacent pairs left to merge")
	}
}
