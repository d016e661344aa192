package bpe

import (
	"bytes"

	"github.com/punjabi-nlp/bpetok/internal/bytestream"
)

// Tokenizer encodes text to token ids and back using a learned vocabulary and
// merge table. A Tokenizer is obtained from Train or Load and is never
// modified afterwards, so Encode and Decode are safe for concurrent use. The
// zero value is an untrained tokenizer: every operation on it returns
// ErrUntrainedState.
type Tokenizer struct {
	vocab  *Vocabulary
	merges *MergeTable
	lookup *BinaryMap[TokenID]
	memo   *LRUCache
}

func newTokenizer(vocab *Vocabulary, merges *MergeTable) *Tokenizer {
	lookup := NewBinaryMap[TokenID]()
	for id := range vocab.tokens {
		lookup.SetIfAbsent(vocab.tokens[id], TokenID(id))
	}
	return &Tokenizer{
		vocab:  vocab,
		merges: merges,
		lookup: lookup,
	}
}

// WithCache returns a tokenizer sharing t's vocabulary and merges that
// memoizes up to size Encode results. A non-positive size disables the memo.
func (t *Tokenizer) WithCache(size int) *Tokenizer {
	if t == nil {
		return nil
	}
	clone := *t
	clone.memo = NewLRUCache(size)
	return &clone
}

// Trained reports whether t has a vocabulary and merge table.
func (t *Tokenizer) Trained() bool {
	return t != nil && t.vocab != nil && t.merges != nil
}

// Encode converts text to token ids by applying learned merges in the order
// they were learned. Encoding the same text always gives the same ids.
func (t *Tokenizer) Encode(text string) ([]TokenID, error) {
	if !t.Trained() {
		return nil, ErrUntrainedState
	}
	if cached, ok := t.memo.Get(text); ok {
		return cached, nil
	}

	ids := BytePairEncode(bytestream.ToIDs(text), t.merges)
	t.memo.Set(text, ids)
	return ids, nil
}

// DecodeBytes concatenates the byte expansion of every id.
func (t *Tokenizer) DecodeBytes(ids []TokenID) ([]byte, error) {
	if !t.Trained() {
		return nil, ErrUntrainedState
	}
	var buf bytes.Buffer
	for i, id := range ids {
		b, ok := t.vocab.bytes(id)
		if !ok {
			return nil, &UnknownTokenIDError{ID: id, Position: i}
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// Decode converts ids back to text. Bytes that don't form valid UTF-8 are
// replaced with U+FFFD rather than failing the decode.
func (t *Tokenizer) Decode(ids []TokenID) (string, error) {
	b, err := t.DecodeBytes(ids)
	if err != nil {
		return "", err
	}
	return bytestream.DecodeLossy(b), nil
}

// TokenBytes returns a copy of the bytes id expands to.
func (t *Tokenizer) TokenBytes(id TokenID) ([]byte, bool) {
	if !t.Trained() {
		return nil, false
	}
	b, ok := t.vocab.bytes(id)
	if !ok {
		return nil, false
	}
	return bytes.Clone(b), true
}

// Lookup returns the lowest id whose expansion is exactly b.
func (t *Tokenizer) Lookup(b []byte) (TokenID, bool) {
	if !t.Trained() {
		return 0, false
	}
	return t.lookup.Get(b)
}

// VocabSize returns the number of ids, byte tokens included.
func (t *Tokenizer) VocabSize() int {
	if !t.Trained() {
		return 0
	}
	return t.vocab.Len()
}

// NumMerges returns the number of learned merges.
func (t *Tokenizer) NumMerges() int {
	if !t.Trained() {
		return 0
	}
	return t.merges.Len()
}

// Merges returns the learned merges in priority order.
func (t *Tokenizer) Merges() []Merge {
	if !t.Trained() {
		return nil
	}
	return t.merges.Merges()
}

// Equal reports whether t and other hold the same vocabulary and merges.
func (t *Tokenizer) Equal(other *Tokenizer) bool {
	if !t.Trained() || !other.Trained() {
		return t.Trained() == other.Trained()
	}
	if t.merges.Len() != other.merges.Len() {
		return false
	}
	for i, p := range t.merges.order {
		if other.merges.order[i] != p {
			return false
		}
	}
	return t.vocab.equal(other.vocab)
}
