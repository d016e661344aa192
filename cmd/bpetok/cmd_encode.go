package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/spf13/cobra"
)

func newEncodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Encode text to token ids",
		Long: `Encode text with a trained tokenizer.

Arguments are joined with single spaces; with no arguments the text is read
from stdin. The text output shows the ids together with the decoded text, a
round-trip check and the compression ratio in characters per token. Use --ids-only for just the ids.`,
		Args: cobra.ArbitraryArgs,
		RunE: runEncode,
	}
	addModelFlag(cmd)
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("ids-only", false, "Print only the space-separated token ids")
	return cmd
}

type encodeJSONOutput struct {
	IDs         []bpe.TokenID `json:"ids"`
	Tokens      int           `json:"tokens"`
	Characters  int           `json:"characters"`
	Bytes       int           `json:"bytes"`
	Decoded     string        `json:"decoded"`
	Match       bool          `json:"match"`
	Compression float64       `json:"compression"`
}

func runEncode(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if err := validateFormat(format, "text", "json"); err != nil {
		return err
	}
	idsOnly, err := cmd.Flags().GetBool("ids-only")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tok, err := loadTokenizer(cmd, cfg)
	if err != nil {
		return err
	}
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	ids, err := tok.Encode(text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if idsOnly {
		fmt.Fprintln(out, formatIDs(ids))
		return nil
	}

	decoded, err := tok.Decode(ids)
	if err != nil {
		return err
	}
	chars := utf8.RuneCountInString(text)
	result := encodeJSONOutput{
		IDs:         ids,
		Tokens:      len(ids),
		Characters:  chars,
		Bytes:       len(text),
		Decoded:     decoded,
		Match:       decoded == text,
		Compression: compression(chars, len(ids)),
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	outputEncodeText(out, result)
	return nil
}

func outputEncodeText(w io.Writer, r encodeJSONOutput) {
	fmt.Fprintf(w, "Token IDs:   %s\n", formatIDs(r.IDs))
	fmt.Fprintf(w, "Tokens:      %d (%d characters, %d bytes)\n", r.Tokens, r.Characters, r.Bytes)
	fmt.Fprintf(w, "Decoded:     %s\n", r.Decoded)
	fmt.Fprintf(w, "Round-trip:  %s\n", matchLabel(r.Match))
	fmt.Fprintf(w, "Compression: %.2fX\n", r.Compression)
}

func formatIDs(ids []bpe.TokenID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, " ")
}

func matchLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "MISMATCH"
}

// compression is characters per token, 0 for empty input.
func compression(chars, tokens int) float64 {
	if tokens == 0 {
		return 0
	}
	return float64(chars) / float64(tokens)
}
