package bpe

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/zstd"
	"github.com/punjabi-nlp/bpetok/internal/bytestream"
)

// Artifact layout. The file is a single zstd frame holding a JSON document
// with the vocabulary and the merge table.
const (
	ArtifactFormat  = "bpetok"
	ArtifactVersion = 1

	DefaultArtifactDir  = "./saved_models"
	DefaultArtifactFile = "bpe_tokenizer.bpe"
)

// DefaultArtifactPath is where the CLI saves and loads tokenizers by default.
var DefaultArtifactPath = filepath.Join(DefaultArtifactDir, DefaultArtifactFile)

var (
	artifactEncoder = mustNewEncoder()
	artifactDecoder = mustNewDecoder()
)

func mustNewEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
	}
	return enc
}

func mustNewDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
	return dec
}

type artifactDoc struct {
	Format  string             `json:"format"`
	Version int                `json:"version"`
	Vocab   map[TokenID][]byte `json:"vocab"`
	Merges  []artifactMerge    `json:"merges"`
}

type artifactMerge struct {
	Left  TokenID `json:"left"`
	Right TokenID `json:"right"`
	ID    TokenID `json:"id"`
}

// MarshalBinary encodes the vocabulary and merge table as an artifact.
func (t *Tokenizer) MarshalBinary() ([]byte, error) {
	if !t.Trained() {
		return nil, ErrUntrainedState
	}

	doc := artifactDoc{
		Format:  ArtifactFormat,
		Version: ArtifactVersion,
		Vocab:   make(map[TokenID][]byte, t.vocab.Len()),
		Merges:  make([]artifactMerge, 0, t.merges.Len()),
	}
	for id, b := range t.vocab.tokens {
		doc.Vocab[TokenID(id)] = b
	}
	for _, m := range t.merges.Merges() {
		doc.Merges = append(doc.Merges, artifactMerge{Left: m.Left, Right: m.Right, ID: m.ID})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling tokenizer: %w", err)
	}
	return artifactEncoder.EncodeAll(data, nil), nil
}

// Unmarshal decodes an artifact produced by MarshalBinary. Anything that
// doesn't decode, or decodes to a vocabulary and merge table that disagree,
// is reported as ErrCorruptArtifact.
func Unmarshal(data []byte) (*Tokenizer, error) {
	raw, err := artifactDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %v", ErrCorruptArtifact, err)
	}

	var doc artifactDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing: %v", ErrCorruptArtifact, err)
	}
	if doc.Format != ArtifactFormat {
		return nil, corruptf("unexpected format %q", doc.Format)
	}
	if doc.Version != ArtifactVersion {
		return nil, corruptf("unsupported version %d", doc.Version)
	}
	return fromDoc(&doc)
}

// fromDoc rebuilds the tokenizer, checking that the byte tokens are intact,
// merge ids are contiguous from FirstMergeID, every merge refers only to
// earlier ids, and every merged expansion is the concatenation of its pair.
func fromDoc(doc *artifactDoc) (*Tokenizer, error) {
	want := bytestream.NumBytes + len(doc.Merges)
	if len(doc.Vocab) != want {
		return nil, corruptf("vocabulary has %d entries, merges imply %d", len(doc.Vocab), want)
	}

	vocab := newBaseVocabulary()
	for id := range bytestream.NumBytes {
		b, ok := doc.Vocab[TokenID(id)]
		if !ok || !bytes.Equal(b, vocab.tokens[id]) {
			return nil, corruptf("byte token %d is missing or altered", id)
		}
	}

	merges := slices.Clone(doc.Merges)
	slices.SortFunc(merges, func(a, b artifactMerge) int {
		return cmp.Compare(a.ID, b.ID)
	})

	table := newMergeTable()
	for i, m := range merges {
		p := Pair{Left: m.Left, Right: m.Right}
		if m.ID != FirstMergeID+TokenID(i) {
			return nil, corruptf("merge %v has id %d, expected %d", p, m.ID, FirstMergeID+TokenID(i))
		}
		if p.Left >= m.ID || p.Right >= m.ID {
			return nil, corruptf("merge %v -> %d refers to a later token", p, m.ID)
		}
		if _, dup := table.Lookup(p); dup {
			return nil, corruptf("pair %v is merged more than once", p)
		}
		expansion, ok := doc.Vocab[m.ID]
		if !ok {
			return nil, corruptf("merged token %d has no vocabulary entry", m.ID)
		}
		if id := vocab.appendMerge(p); !bytes.Equal(vocab.tokens[id], expansion) {
			return nil, corruptf("token %d does not expand to its merge %v", m.ID, p)
		}
		table.add(p, m.ID)
	}

	return newTokenizer(vocab, table), nil
}

// Save writes t to path, creating parent directories as needed. The file is
// written to a temporary name first and renamed into place.
func (t *Tokenizer) Save(path string) error {
	data, err := t.MarshalBinary()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bpetok-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary artifact: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving artifact into place: %w", err)
	}

	slog.Debug("Tokenizer saved", "path", path, "bytes", len(data))
	return nil
}

// Load reads a tokenizer saved with Save.
func Load(path string) (*Tokenizer, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tokenizer artifact: %w", err)
	}

	tok, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Debug("Tokenizer loaded", "path", path, "vocabSize", tok.VocabSize())
	return tok, nil
}
