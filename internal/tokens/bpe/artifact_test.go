package bpe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	tok := trainForTest(t, punjabiCorpus, 320)
	path := filepath.Join(t.TempDir(), "nested", "models", DefaultArtifactFile)

	require.NoError(t, tok.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, tok.Equal(loaded))
	require.Equal(t, tok.Merges(), loaded.Merges())

	for _, str := range []string{"ਮੈਨੂੰ ਚਾਹ ਪੀਣੀ ਹੈ", "", "x"} {
		want, err := tok.Encode(str)
		require.NoError(t, err)
		got, err := loaded.Encode(str)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files should be cleaned up")
}

func TestSaveLoad_NoMerges(t *testing.T) {
	tok := trainForTest(t, "", 5000)
	path := filepath.Join(t.TempDir(), "empty.bpe")
	require.NoError(t, tok.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 256, loaded.VocabSize())
	require.Zero(t, loaded.NumMerges())
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tok.bpe")
	require.NoError(t, trainForTest(t, "aaaa", 257).Save(path))
	require.NoError(t, trainForTest(t, "abab", 257).Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []Merge{{Pair: Pair{'a', 'b'}, ID: 256}}, loaded.Merges())
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bpe"))
	require.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = Load(t.TempDir())
	require.ErrorIs(t, err, ErrArtifactNotFound, "a directory is not an artifact")
}

func TestLoad_Corrupt(t *testing.T) {
	write := func(t *testing.T, data []byte) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "tok.bpe")
		require.NoError(t, os.WriteFile(path, data, 0644))
		return path
	}

	t.Run("not zstd", func(t *testing.T) {
		_, err := Load(write(t, []byte("definitely not a tokenizer")))
		require.ErrorIs(t, err, ErrCorruptArtifact)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Load(write(t, artifactEncoder.EncodeAll([]byte("{oops"), nil)))
		require.ErrorIs(t, err, ErrCorruptArtifact)
	})

	t.Run("truncated", func(t *testing.T) {
		data, err := trainForTest(t, punjabiCorpus, 300).MarshalBinary()
		require.NoError(t, err)
		_, err = Load(write(t, data[:len(data)/2]))
		require.ErrorIs(t, err, ErrCorruptArtifact)
	})
}

func TestUnmarshal_Invariants(t *testing.T) {
	valid := func() artifactDoc {
		tok := trainForTest(t, "aaabdaaabac", 259)
		doc := artifactDoc{
			Format:  ArtifactFormat,
			Version: ArtifactVersion,
			Vocab:   map[TokenID][]byte{},
		}
		for id := range tok.VocabSize() {
			b, _ := tok.TokenBytes(TokenID(id))
			doc.Vocab[TokenID(id)] = b
		}
		for _, m := range tok.Merges() {
			doc.Merges = append(doc.Merges, artifactMerge{Left: m.Left, Right: m.Right, ID: m.ID})
		}
		return doc
	}
	encode := func(t *testing.T, doc artifactDoc) []byte {
		t.Helper()
		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		return artifactEncoder.EncodeAll(raw, nil)
	}

	t.Run("valid document loads", func(t *testing.T) {
		tok, err := Unmarshal(encode(t, valid()))
		require.NoError(t, err)
		require.Equal(t, 3, tok.NumMerges())
	})

	t.Run("merge order in the file does not matter", func(t *testing.T) {
		doc := valid()
		doc.Merges[0], doc.Merges[2] = doc.Merges[2], doc.Merges[0]
		tok, err := Unmarshal(encode(t, doc))
		require.NoError(t, err)
		require.Equal(t, Pair{'a', 'a'}, tok.Merges()[0].Pair)
	})

	for _, tt := range []struct {
		name   string
		mutate func(doc *artifactDoc)
	}{
		{"wrong format", func(doc *artifactDoc) { doc.Format = "pickle" }},
		{"future version", func(doc *artifactDoc) { doc.Version = ArtifactVersion + 1 }},
		{"altered byte token", func(doc *artifactDoc) { doc.Vocab[65] = []byte("B") }},
		{"missing vocabulary entry", func(doc *artifactDoc) { delete(doc.Vocab, 258) }},
		{"extra vocabulary entry", func(doc *artifactDoc) { doc.Vocab[900] = []byte("zz") }},
		{"gap in merge ids", func(doc *artifactDoc) {
			doc.Merges[2].ID = 259
			doc.Vocab[259] = doc.Vocab[258]
			delete(doc.Vocab, 258)
		}},
		{"merge refers to a later token", func(doc *artifactDoc) { doc.Merges[1].Left = 258 }},
		{"expansion does not match merge", func(doc *artifactDoc) { doc.Vocab[258] = []byte("aaaa") }},
		{"pair merged twice", func(doc *artifactDoc) {
			doc.Merges[1] = artifactMerge{Left: 'a', Right: 'a', ID: 257}
			doc.Vocab[257] = []byte("aa")
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(&doc)
			_, err := Unmarshal(encode(t, doc))
			require.ErrorIs(t, err, ErrCorruptArtifact)
		})
	}
}
