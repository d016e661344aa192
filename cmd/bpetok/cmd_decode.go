package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [ids...]",
		Short: "Decode token ids to text",
		Long: `Decode token ids with a trained tokenizer.

Ids may be separated by spaces and/or commas ("1 23 45" or "1, 23, 45").
With no arguments they are read from stdin. Byte sequences that are not
valid UTF-8 are shown as U+FFFD unless --raw is given.`,
		Args: cobra.ArbitraryArgs,
		RunE: runDecode,
	}
	addModelFlag(cmd)
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("raw", false, "Write the decoded bytes unchanged (text format only)")
	cmd.SetFlagErrorFunc(negativeIDError)
	return cmd
}

// negativeIDError reports "-1" and the like as bad token input. The flag
// parser sees them as unknown shorthand flags before RunE ever runs.
func negativeIDError(_ *cobra.Command, err error) error {
	var notExist *pflag.NotExistError
	if errors.As(err, &notExist) {
		if short := notExist.GetSpecifiedShortnames(); short != "" && short[0] >= '0' && short[0] <= '9' {
			return fmt.Errorf("%w: token %q is negative, expected a non-negative integer", bpe.ErrInvalidTokenInput, "-"+short)
		}
	}
	return err
}

type decodeJSONOutput struct {
	IDs  []bpe.TokenID `json:"ids"`
	Text string        `json:"text"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if err := validateFormat(format, "text", "json"); err != nil {
		return err
	}
	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return err
	}
	if raw && format == "json" {
		return fmt.Errorf("%w: --raw is only supported with text output", bpe.ErrInvalidConfig)
	}

	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	ids, err := bpe.ParseTokenIDs(input)
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

	out := cmd.OutOrStdout()
	if raw {
		b, err := tok.DecodeBytes(ids)
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}

	text, err := tok.Decode(ids)
	if err != nil {
		return err
	}
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(decodeJSONOutput{IDs: ids, Text: text})
	}
	fmt.Fprintln(out, text)
	return nil
}
