package bpe

import (
	"fmt"

	"github.com/punjabi-nlp/bpetok/internal/bytestream"
)

// TokenID identifies a raw byte (0-255) or a learned merge (256 and up).
type TokenID = uint32

// FirstMergeID is the id assigned to the first learned merge.
const FirstMergeID TokenID = bytestream.NumBytes

// Pair is an ordered pair of adjacent token ids.
type Pair struct {
	Left  TokenID
	Right TokenID
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Left, p.Right)
}

// Merge is one learned rule: Pair is replaced by ID.
type Merge struct {
	Pair
	ID TokenID
}

// MergeTable maps pairs to the id they were merged into. The learning order
// is the priority order: a lower id is applied first.
type MergeTable struct {
	ids   map[Pair]TokenID
	order []Pair
}

func newMergeTable() *MergeTable {
	return &MergeTable{ids: make(map[Pair]TokenID)}
}

// Len returns the number of learned merges.
func (m *MergeTable) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Lookup returns the id p was merged into.
func (m *MergeTable) Lookup(p Pair) (TokenID, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.ids[p]
	return id, ok
}

// Merges returns the learned merges in priority order.
func (m *MergeTable) Merges() []Merge {
	if m == nil {
		return nil
	}
	out := make([]Merge, len(m.order))
	for i, p := range m.order {
		out[i] = Merge{Pair: p, ID: FirstMergeID + TokenID(i)}
	}
	return out
}

func (m *MergeTable) add(p Pair, id TokenID) {
	m.ids[p] = id
	m.order = append(m.order, p)
}
