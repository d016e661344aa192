package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Text(t *testing.T) {
	model := trainModel(t, "aaabdaaabac", 259)

	out, err := runCLI(t, "", "encode", "--model", model, "aaabdaaabac")
	require.NoError(t, err)

	expected := "Token IDs:   258 100 258 97 99\n" +
		"Tokens:      5 (11 characters, 11 bytes)\n" +
		"Decoded:     aaabdaaabac\n" +
		"Round-trip:  ok\n" +
		"Compression: 2.20X\n"
	assert.Equal(t, expected, out)
}

func TestEncode_CompressionCountsCharacters(t *testing.T) {
	model := trainModel(t, "ਸਤ ਸਤ ਸਤ ਸਤ", 262)

	out, err := runCLI(t, "", "encode", "-m", model, "ਸਤ")
	require.NoError(t, err)

	expected := "Token IDs:   259\n" +
		"Tokens:      1 (2 characters, 6 bytes)\n" +
		"Decoded:     ਸਤ\n" +
		"Round-trip:  ok\n" +
		"Compression: 2.00X\n"
	assert.Equal(t, expected, out)
}

func TestEncode_IDsOnlyFromStdin(t *testing.T) {
	model := trainModel(t, "aaaa", 257)

	out, err := runCLI(t, "aaaa\n", "encode", "-m", model, "--ids-only")
	require.NoError(t, err)
	assert.Equal(t, "256 256\n", out)
}

func TestEncode_JoinsArgs(t *testing.T) {
	model := trainModel(t, "aaaa", 257)

	out, err := runCLI(t, "", "encode", "-m", model, "--ids-only", "aa", "aa")
	require.NoError(t, err)
	assert.Equal(t, "256 32 256\n", out)
}

func TestEncode_JSON(t *testing.T) {
	model := trainModel(t, "ਸਤ ਸ੍ਰੀ ਅਕਾਲ ਸਤ ਸ੍ਰੀ ਅਕਾਲ", 270)

	out, err := runCLI(t, "", "encode", "-m", model, "--format", "json", "ਸਤ ਸ੍ਰੀ ਅਕਾਲ")
	require.NoError(t, err)

	var result encodeJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.Equal(t, "ਸਤ ਸ੍ਰੀ ਅਕਾਲ", result.Decoded)
	assert.True(t, result.Match)
	assert.Equal(t, len(result.IDs), result.Tokens)
	assert.Equal(t, len("ਸਤ ਸ੍ਰੀ ਅਕਾਲ"), result.Bytes)
	assert.Equal(t, 12, result.Characters)
	assert.Less(t, result.Tokens, result.Bytes)
	assert.InDelta(t, 12/float64(result.Tokens), result.Compression, 1e-9)
}

func TestEncode_EmptyInput(t *testing.T) {
	model := trainModel(t, "aaaa", 257)

	out, err := runCLI(t, "", "encode", "-m", model, "--format", "json")
	require.NoError(t, err)

	var result encodeJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.IDs)
	assert.True(t, result.Match)
	assert.Zero(t, result.Compression)
}

func TestEncode_MissingModel(t *testing.T) {
	_, err := runCLI(t, "", "encode", "-m", filepath.Join(t.TempDir(), "none.bpe"), "hello")
	require.ErrorIs(t, err, bpe.ErrArtifactNotFound)
	assert.Contains(t, err.Error(), "run `bpetok train` first")
	assert.Equal(t, ExitError, exitCode(err))
}

func TestEncode_BadFormat(t *testing.T) {
	_, err := runCLI(t, "", "encode", "--format", "xml", "hello")
	require.ErrorIs(t, err, bpe.ErrInvalidConfig)
}

func TestDecode(t *testing.T) {
	model := trainModel(t, "aaabdaaabac", 259)

	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{"spaces", []string{"258 100 258 97 99"}, "", "aaabdaaabac\n"},
		{"commas", []string{"258,", "100,", "258,", "97,", "99"}, "", "aaabdaaabac\n"},
		{"stdin", nil, "258, 100\n", "aaabd\n"},
		{"empty", nil, "", "\n"},
		{"lossy", []string{"97 255 98"}, "", "a\uFFFDb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"decode", "-m", model}, tt.args...)
			out, err := runCLI(t, tt.stdin, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDecode_Raw(t *testing.T) {
	model := trainModel(t, "aaaa", 257)

	out, err := runCLI(t, "", "decode", "-m", model, "--raw", "256 255")
	require.NoError(t, err)
	assert.Equal(t, "aa\xff", out)
}

func TestDecode_JSON(t *testing.T) {
	model := trainModel(t, "aaaa", 257)

	out, err := runCLI(t, "", "decode", "-m", model, "--format", "json", "256, 98")
	require.NoError(t, err)

	var result decodeJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []bpe.TokenID{256, 98}, result.IDs)
	assert.Equal(t, "aab", result.Text)
}

func TestDecode_Errors(t *testing.T) {
	model := trainModel(t, "aaaa", 257)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"garbage", []string{"1 two 3"}, bpe.ErrInvalidTokenInput},
		{"negative", []string{"-1"}, bpe.ErrInvalidTokenInput},
		{"negative after ids", []string{"5", "-12"}, bpe.ErrInvalidTokenInput},
		{"negative after separator", []string{"--", "-1"}, bpe.ErrInvalidTokenInput},
		{"unknown id", []string{"97 999999"}, bpe.ErrUnknownTokenID},
		{"raw json", []string{"--raw", "--format", "json", "97"}, bpe.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"decode", "-m", model}, tt.args...)
			_, err := runCLI(t, "", args...)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, ExitUsage, exitCode(err))
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	corpus := "ਪੰਜਾਬੀ ਭਾਸ਼ਾ ਪੰਜਾਬ ਦੀ ਬੋਲੀ ਹੈ। ਪੰਜਾਬੀ ਬੋਲੀ।"
	model := trainModel(t, corpus, 290)

	ids, err := runCLI(t, "", "encode", "-m", model, "--ids-only", corpus)
	require.NoError(t, err)

	out, err := runCLI(t, ids, "decode", "-m", model)
	require.NoError(t, err)
	assert.Equal(t, corpus+"\n", out)
}
