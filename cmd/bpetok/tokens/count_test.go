package tokens

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
	"github.com/stretchr/testify/require"
)

func saveTestModel(t *testing.T) string {
	t.Helper()
	tok, err := bpe.Train(context.Background(), "aaabdaaabac", bpe.TrainOptions{MaxVocabSize: 259})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.bpe")
	require.NoError(t, tok.Save(path))
	return path
}

func TestCount_TableFormat(t *testing.T) {
	cmd := newCountCmd()
	cmd.SetArgs([]string{"--tokenizer", "estimate", "testdata"})
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	require.NoError(t, cmd.Execute())

	expected := `File                        Tokens     Chars     Bytes   Lines
--------------------------------------------------------------
testdata/README.md              11        43        43       4
testdata/pa/abc.txt              3        11        11       1
testdata/pa/greeting.txt        17        26        68       3
--------------------------------------------------------------
Total                           31        80       122       8

3 file(s) scanned
`
	require.Equal(t, expected, out.String())
}

func TestCount_JSONFormat(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := newCountCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "--tokenizer", "estimate", "testdata"})
	require.NoError(t, cmd.Execute())

	output := out.String()

	var result countJSONOutput
	require.NoError(t, json.Unmarshal([]byte(output), &result), "invalid JSON output: %s", output)

	require.Equal(t, "estimate", result.Tokenizer)
	require.Equal(t, 3, result.TotalFiles)
	require.Equal(t, 31, result.TotalTokens) // 11 + 3 + 17

	expected := map[string]countFileEntry{
		"testdata/README.md":       {Tokens: 11, Characters: 43, Bytes: 43, Lines: 4},
		"testdata/pa/abc.txt":      {Tokens: 3, Characters: 11, Bytes: 11, Lines: 1},
		"testdata/pa/greeting.txt": {Tokens: 17, Characters: 26, Bytes: 68, Lines: 3},
	}
	require.Equal(t, expected, result.Files)

	require.NotContains(t, result.Files, "testdata/notes.json")
	require.NotContains(t, result.Files, "testdata/node_modules/skip.txt")
}

func TestCount_BPETokenizer(t *testing.T) {
	model := saveTestModel(t)

	out := new(bytes.Buffer)
	cmd := newCountCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "--model", model, "testdata/pa/abc.txt"})
	require.NoError(t, cmd.Execute())

	var result countJSONOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.Equal(t, "bpe", result.Tokenizer)
	require.Equal(t, 5, result.Files["testdata/pa/abc.txt"].Tokens)
}

func TestCount_BPEMissingModel(t *testing.T) {
	cmd := newCountCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--model", filepath.Join(t.TempDir(), "missing.bpe"), "testdata"})
	err := cmd.Execute()
	require.ErrorIs(t, err, bpe.ErrArtifactNotFound)
}

func TestCount_SortByTokens(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := newCountCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--tokenizer", "estimate", "--sort", "tokens", "testdata"})
	require.NoError(t, cmd.Execute())

	var dataLines []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "testdata/") {
			dataLines = append(dataLines, line)
		}
	}
	require.Len(t, dataLines, 3)
	require.True(t, strings.HasPrefix(dataLines[0], "testdata/pa/greeting.txt"))
	require.True(t, strings.HasPrefix(dataLines[1], "testdata/README.md"))
	require.True(t, strings.HasPrefix(dataLines[2], "testdata/pa/abc.txt"))
}

func TestCount_MinTokensAndNoTotal(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := newCountCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--tokenizer", "estimate", "--min-tokens", "11", "--no-total", "testdata"})
	require.NoError(t, cmd.Execute())

	output := out.String()
	require.Contains(t, output, "testdata/README.md")
	require.Contains(t, output, "testdata/pa/greeting.txt")
	require.NotContains(t, output, "abc.txt")
	require.NotContains(t, output, "Total")
}

func TestCount_SingleWorker(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := newCountCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "--tokenizer", "estimate", "--workers", "1", "testdata"})
	require.NoError(t, cmd.Execute())

	var result countJSONOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.Equal(t, 31, result.TotalTokens)
}

func TestCount_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"sort with json", []string{"--format", "json", "--sort", "tokens"}, "--sort is only supported"},
		{"no-total with json", []string{"--format", "json", "--no-total"}, "--no-total is only supported"},
		{"zero workers", []string{"--tokenizer", "estimate", "--workers", "0"}, "--workers must be at least 1"},
		{"unknown tokenizer", []string{"--tokenizer", "words"}, "unknown tokenizer"},
		{"unknown format", []string{"--tokenizer", "estimate", "--format", "csv"}, `unknown --format "csv"`},
		{"unknown sort", []string{"--tokenizer", "estimate", "--sort", "size"}, `unknown --sort "size"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCountCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetArgs(append(tt.args, "testdata"))
			err := cmd.Execute()
			require.ErrorIs(t, err, bpe.ErrInvalidConfig)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCount_NoFiles(t *testing.T) {
	out := new(bytes.Buffer)
	cmd := newCountCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--tokenizer", "estimate", "testdata/pa/abc.txt", "--min-tokens", "100"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "No text files found.\n", out.String())
}
