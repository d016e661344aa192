package bpe

const bytesPerLevel = 6

func byteAt(k []byte, index int) uint64 {
	if index < 0 || index >= len(k) {
		return 0
	}
	return uint64(k[index])
}

// BinaryMapKey packs up to six bytes of k[start:end] into a 48-bit key.
// Trailing zero bytes do not change the key; see finalKey.
func BinaryMapKey(k []byte, start, end int) uint64 {
	length := max(end-start, 0)

	lowerShift := 0
	if v := (3 - length) * 8; v > 0 {
		lowerShift = v
	}
	lowerMask := uint64(0xFFFFFF >> lowerShift)
	lower := (byteAt(k, start+0) | (byteAt(k, start+1) << 8) | (byteAt(k, start+2) << 16)) & lowerMask

	upperShift := min(max((6-length)*8, 0), 31)
	upperMask := uint64(0xFFFFFF >> upperShift)
	upper := (byteAt(k, start+3) | (byteAt(k, start+4) << 8) | (byteAt(k, start+5) << 16)) & upperMask

	return lower + (0x1000000 * upper)
}

// finalKey is BinaryMapKey with the range length folded into bits 48 and up,
// so "a" and "a\x00" stay distinct on the last level.
func finalKey(k []byte, start, end int) uint64 {
	return BinaryMapKey(k, start, end) | uint64(end-start)<<48
}

// BinaryMap is a byte-string keyed map that consumes its key six bytes per
// level. Lookups can address a sub-range of a larger buffer without slicing
// or allocating a string key, which is how token expansions are resolved
// back to ids.
type BinaryMap[V any] struct {
	nested map[uint64]*BinaryMap[V]
	final  map[uint64]V
	size   int
}

func NewBinaryMap[V any]() *BinaryMap[V] {
	return &BinaryMap[V]{
		nested: map[uint64]*BinaryMap[V]{},
		final:  map[uint64]V{},
	}
}

// Len returns the number of keys stored.
func (b *BinaryMap[V]) Len() int {
	return b.size
}

func (b *BinaryMap[V]) Get(key []byte) (V, bool) {
	return b.GetRange(key, 0, len(key))
}

func (b *BinaryMap[V]) GetRange(key []byte, start, end int) (V, bool) {
	var zero V
	if start < 0 {
		start = 0
	}
	if end < start {
		return zero, false
	}

	if end < bytesPerLevel+start {
		v, ok := b.final[finalKey(key, start, end)]
		return v, ok
	}

	next, ok := b.nested[BinaryMapKey(key, start, end)]
	if !ok {
		return zero, false
	}
	return next.GetRange(key, bytesPerLevel+start, end)
}

// Set stores value under key, replacing any previous value.
func (b *BinaryMap[V]) Set(key []byte, value V) {
	b.set(key, value, true)
}

// SetIfAbsent stores value only if key has no value yet and reports whether
// it did.
func (b *BinaryMap[V]) SetIfAbsent(key []byte, value V) bool {
	return b.set(key, value, false)
}

func (b *BinaryMap[V]) set(key []byte, value V, overwrite bool) bool {
	if len(key) < bytesPerLevel {
		k := finalKey(key, 0, len(key))
		if _, exists := b.final[k]; exists && !overwrite {
			return false
		} else if !exists {
			b.size++
		}
		b.final[k] = value
		return true
	}

	k := BinaryMapKey(key, 0, len(key))
	next, ok := b.nested[k]
	if !ok {
		next = NewBinaryMap[V]()
		b.nested[k] = next
	}
	before := next.size
	stored := next.set(key[bytesPerLevel:], value, overwrite)
	b.size += next.size - before
	return stored
}
