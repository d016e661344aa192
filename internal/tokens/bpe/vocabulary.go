package bpe

import (
	"bytes"

	"github.com/punjabi-nlp/bpetok/internal/bytestream"
)

// Vocabulary maps token ids to the bytes they expand to. Ids are dense: the
// first 256 are the raw bytes and every later id is a learned merge.
type Vocabulary struct {
	tokens [][]byte
}

func newBaseVocabulary() *Vocabulary {
	v := &Vocabulary{tokens: make([][]byte, bytestream.NumBytes, 512)}
	for i := range bytestream.NumBytes {
		v.tokens[i] = []byte{byte(i)}
	}
	return v
}

// Len returns the number of ids in the vocabulary.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.tokens)
}

// Contains reports whether id is in the vocabulary.
func (v *Vocabulary) Contains(id TokenID) bool {
	return int64(id) < int64(v.Len())
}

// bytes returns the expansion of id without copying. Callers must not modify it.
func (v *Vocabulary) bytes(id TokenID) ([]byte, bool) {
	if !v.Contains(id) {
		return nil, false
	}
	return v.tokens[id], true
}

// appendMerge adds the concatenation of p's expansions and returns its new id.
func (v *Vocabulary) appendMerge(p Pair) TokenID {
	left, right := v.tokens[p.Left], v.tokens[p.Right]
	merged := make([]byte, 0, len(left)+len(right))
	merged = append(merged, left...)
	merged = append(merged, right...)
	v.tokens = append(v.tokens, merged)
	return TokenID(len(v.tokens) - 1)
}

func (v *Vocabulary) equal(other *Vocabulary) bool {
	if v.Len() != other.Len() {
		return false
	}
	for i := range v.tokens {
		if !bytes.Equal(v.tokens[i], other.tokens[i]) {
			return false
		}
	}
	return true
}
