package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/punjabi-nlp/bpetok/internal/bytestream"
	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the vocabulary of a trained tokenizer",
		Long: `List the tokens of a trained tokenizer.

Each row shows the id, the token as text (quoted when it is not printable
UTF-8), its length in bytes and, for learned tokens, the pair it was merged
from. Learned tokens are listed in the order they were learned.

With --lookup, report instead whether the given text is exactly one token
of the vocabulary and, if so, its id.`,
		Args: cobra.NoArgs,
		RunE: runInspect,
	}
	addModelFlag(cmd)
	cmd.Flags().String("format", "table", "Output format: json | table")
	cmd.Flags().Bool("merged-only", false, "Skip the 256 byte tokens")
	cmd.Flags().Int("limit", 0, "Show at most n tokens (0 = all)")
	cmd.Flags().String("lookup", "", "Print the id of the token that expands to exactly this text")
	return cmd
}

type vocabEntry struct {
	ID    bpe.TokenID  `json:"id"`
	Token string       `json:"token"`
	Bytes int          `json:"bytes"`
	Left  *bpe.TokenID `json:"left,omitempty"`
	Right *bpe.TokenID `json:"right,omitempty"`
}

type lookupJSONOutput struct {
	Text  string       `json:"text"`
	Found bool         `json:"found"`
	ID    *bpe.TokenID `json:"id,omitempty"`
}

type inspectJSONOutput struct {
	VocabSize int          `json:"vocabSize"`
	Merges    int          `json:"merges"`
	Tokens    []vocabEntry `json:"tokens"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if err := validateFormat(format, "table", "json"); err != nil {
		return err
	}
	mergedOnly, err := cmd.Flags().GetBool("merged-only")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("%w: --limit must not be negative", bpe.ErrInvalidConfig)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tok, err := loadTokenizer(cmd, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cmd.Flags().Changed("lookup") {
		text, err := cmd.Flags().GetString("lookup")
		if err != nil {
			return err
		}
		return outputLookup(out, tok, text, format)
	}

	entries := vocabEntries(tok, mergedOnly, limit)
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(inspectJSONOutput{
			VocabSize: tok.VocabSize(),
			Merges:    tok.NumMerges(),
			Tokens:    entries,
		})
	}
	outputInspectTable(out, tok, entries)
	return nil
}

func outputLookup(w io.Writer, tok *bpe.Tokenizer, text, format string) error {
	id, found := tok.Lookup([]byte(text))
	if format == "json" {
		result := lookupJSONOutput{Text: text, Found: found}
		if found {
			result.ID = &id
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if !found {
		fmt.Fprintf(w, "%s: not a single token\n", printable([]byte(text)))
		return nil
	}
	fmt.Fprintf(w, "%s: token %d\n", printable([]byte(text)), id)
	return nil
}

func vocabEntries(tok *bpe.Tokenizer, mergedOnly bool, limit int) []vocabEntry {
	var entries []vocabEntry
	full := func() bool { return limit > 0 && len(entries) >= limit }

	if !mergedOnly {
		for id := range bpe.TokenID(bytestream.NumBytes) {
			if full() {
				return entries
			}
			b, _ := tok.TokenBytes(id)
			entries = append(entries, vocabEntry{ID: id, Token: printable(b), Bytes: len(b)})
		}
	}
	for _, m := range tok.Merges() {
		if full() {
			break
		}
		b, _ := tok.TokenBytes(m.ID)
		entries = append(entries, vocabEntry{
			ID:    m.ID,
			Token: printable(b),
			Bytes: len(b),
			Left:  &m.Left,
			Right: &m.Right,
		})
	}
	return entries
}

// printable returns b as text when it is valid UTF-8 made of printable,
// non-space runes, and as a Go quoted string otherwise.
func printable(b []byte) string {
	if len(b) == 0 || !utf8.Valid(b) {
		return strconv.Quote(string(b))
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return strconv.Quote(string(b))
		}
	}
	return string(b)
}

func outputInspectTable(w io.Writer, tok *bpe.Tokenizer, entries []vocabEntry) {
	fmt.Fprintf(w, "Vocabulary: %d tokens (%d bytes + %d merges)\n\n", tok.VocabSize(), bytestream.NumBytes, tok.NumMerges())
	if len(entries) == 0 {
		fmt.Fprintln(w, "No tokens to show.")
		return
	}

	tokenWidth := runewidth.StringWidth("Token")
	for _, e := range entries {
		tokenWidth = max(tokenWidth, runewidth.StringWidth(e.Token))
	}

	header := fmt.Sprintf("%6s  %s  %5s  %s", "ID", runewidth.FillRight("Token", tokenWidth), "Bytes", "Merge")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", runewidth.StringWidth(header)))

	for _, e := range entries {
		merge := ""
		if e.Left != nil && e.Right != nil {
			merge = fmt.Sprintf("%d + %d", *e.Left, *e.Right)
		}
		line := fmt.Sprintf("%6d  %s  %5d  %s", e.ID, runewidth.FillRight(e.Token, tokenWidth), e.Bytes, merge)
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
