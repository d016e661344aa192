package tokens

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/punjabi-nlp/bpetok/internal/projectconfig"
	"github.com/punjabi-nlp/bpetok/internal/tokens"
	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [paths...]",
		Short: "Count tokens in text files",
		Long: `Count tokens in text files.

Paths may be files or directories (scanned recursively for .txt/.md/.mdx
files). A relative path is resolved from the working directory; an absolute
path is used as-is. When no path is given, the working directory is scanned.

By default tokens are counted with the trained BPE tokenizer; use
--tokenizer estimate for a rough count without one.`,
		Args: cobra.ArbitraryArgs,
		RunE: runCount,
	}
	cmd.Flags().String("format", "table", "Output format: json | table")
	cmd.Flags().String("sort", "path", "Sort table rows by: tokens | name | path")
	cmd.Flags().Int("min-tokens", 0, "Filter files with less than n tokens")
	cmd.Flags().Bool("no-total", false, "Hide total row in table output")
	cmd.Flags().String("tokenizer", string(tokens.TokenizerBPE), "Counting method: bpe | estimate")
	cmd.Flags().StringP("model", "m", "", "Tokenizer artifact (default: artifact.dir/artifact.file from config)")
	cmd.Flags().Int("workers", 0, "Files counted in parallel (default: count.workers from config)")
	return cmd
}

type countJSONOutput struct {
	GeneratedAt string                    `json:"generatedAt"`
	Tokenizer   string                    `json:"tokenizer"`
	TotalTokens int                       `json:"totalTokens"`
	TotalFiles  int                       `json:"totalFiles"`
	Files       map[string]countFileEntry `json:"files"`
}

type countFileEntry struct {
	Tokens     int `json:"tokens"`
	Characters int `json:"characters"`
	Bytes      int `json:"bytes"`
	Lines      int `json:"lines"`
}

func runCount(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	sortBy, err := cmd.Flags().GetString("sort")
	if err != nil {
		return err
	}
	minTokens, err := cmd.Flags().GetInt("min-tokens")
	if err != nil {
		return err
	}
	noTotal, err := cmd.Flags().GetBool("no-total")
	if err != nil {
		return err
	}
	kind, err := cmd.Flags().GetString("tokenizer")
	if err != nil {
		return err
	}
	if err := checkChoice("format", format, "table", "json"); err != nil {
		return err
	}
	if err := checkChoice("sort", sortBy, "path", "name", "tokens"); err != nil {
		return err
	}
	if format == "json" {
		if cmd.Flags().Changed("sort") {
			return fmt.Errorf("%w: --sort is only supported with table output", bpe.ErrInvalidConfig)
		}
		if cmd.Flags().Changed("no-total") {
			return fmt.Errorf("%w: --no-total is only supported with table output", bpe.ErrInvalidConfig)
		}
	}

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	cfg, err := projectconfig.Load(rootDir)
	if err != nil {
		return err
	}
	workers := cfg.Count.Workers
	if cmd.Flags().Changed("workers") {
		if workers, err = cmd.Flags().GetInt("workers"); err != nil {
			return err
		}
	}
	if workers < 1 {
		return fmt.Errorf("%w: --workers must be at least 1", bpe.ErrInvalidConfig)
	}

	counter, err := newCounter(cmd, cfg, tokens.TokenizerKind(kind))
	if err != nil {
		return err
	}

	files, err := findTextFiles(args, rootDir)
	if err != nil {
		return err
	}

	counted := make([]*FileResult, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := countFile(counter, f, rootDir)
			if err != nil {
				return err
			}
			counted[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var results []FileResult
	for _, r := range counted {
		if r.Tokens >= minTokens {
			results = append(results, *r)
		}
	}

	sortResults(results, sortBy)

	out := cmd.OutOrStdout()
	if format == "json" {
		return outputCountJSON(out, kind, results)
	}
	outputCountTable(out, results, !noTotal)
	return nil
}

func checkChoice(flag, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: unknown --%s %q (want %s)", bpe.ErrInvalidConfig, flag, value, strings.Join(allowed, " | "))
}

func newCounter(cmd *cobra.Command, cfg *projectconfig.ProjectConfig, kind tokens.TokenizerKind) (tokens.Counter, error) {
	if kind != tokens.TokenizerBPE {
		return tokens.NewCounter(kind, nil)
	}
	path, err := cmd.Flags().GetString("model")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.ArtifactPath()
	}
	tok, err := bpe.Load(path)
	if err != nil {
		return nil, err
	}
	return tokens.NewCounter(kind, tok.WithCache(cfg.EncodeCacheSize()))
}

func countFile(counter tokens.Counter, filePath, rootDir string) (*FileResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}

	rel, err := filepath.Rel(rootDir, filePath)
	if err != nil {
		rel = filePath
	}

	text := string(content)
	n, err := counter.Count(text)
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", rel, err)
	}
	return &FileResult{
		Path:       filepath.ToSlash(filepath.Clean(rel)),
		Tokens:     n,
		Characters: utf8.RuneCountInString(text),
		Bytes:      len(text),
		Lines:      len(strings.Split(text, "\n")),
	}, nil
}

func sortResults(results []FileResult, by string) {
	sort.Slice(results, func(i, j int) bool {
		switch by {
		case "tokens":
			return results[i].Tokens > results[j].Tokens
		case "name":
			a := filepath.Base(results[i].Path)
			b := filepath.Base(results[j].Path)
			return strings.ToLower(a) < strings.ToLower(b)
		default:
			return results[i].Path < results[j].Path
		}
	})
}

func outputCountTable(w io.Writer, results []FileResult, showTotal bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No text files found.")
		return
	}

	maxPath := 4
	for _, r := range results {
		if len(r.Path) > maxPath {
			maxPath = len(r.Path)
		}
	}

	header := fmt.Sprintf("%-*s  %8s  %8s  %8s  %6s", maxPath, "File", "Tokens", "Chars", "Bytes", "Lines")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, r := range results {
		fmt.Fprintf(w, "%-*s  %8d  %8d  %8d  %6d\n", maxPath, r.Path, r.Tokens, r.Characters, r.Bytes, r.Lines)
	}

	if showTotal {
		fmt.Fprintln(w, strings.Repeat("-", len(header)))
		var totalTokens, totalChars, totalBytes, totalLines int
		for _, r := range results {
			totalTokens += r.Tokens
			totalChars += r.Characters
			totalBytes += r.Bytes
			totalLines += r.Lines
		}
		fmt.Fprintf(w, "%-*s  %8d  %8d  %8d  %6d\n", maxPath, "Total", totalTokens, totalChars, totalBytes, totalLines)
		fmt.Fprintf(w, "\n%d file(s) scanned\n", len(results))
	}
}

func outputCountJSON(w io.Writer, kind string, results []FileResult) error {
	files := make(map[string]countFileEntry, len(results))
	totalTokens := 0
	for _, r := range results {
		totalTokens += r.Tokens
		files[r.Path] = countFileEntry{
			Tokens:     r.Tokens,
			Characters: r.Characters,
			Bytes:      r.Bytes,
			Lines:      r.Lines,
		}
	}

	out := countJSONOutput{
		GeneratedAt: nowISO(),
		Tokenizer:   kind,
		TotalTokens: totalTokens,
		TotalFiles:  len(results),
		Files:       files,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
