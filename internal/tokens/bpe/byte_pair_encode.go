package bpe

// BytePairEncode repeatedly applies the highest-priority merge present in ids
// (the pair with the lowest merged id) until no known pair remains. ids is
// rewritten in place and the merged prefix is returned.
func BytePairEncode(ids []TokenID, merges *MergeTable) []TokenID {
	for len(ids) >= 2 {
		p, id, ok := lowestMerge(ids, merges)
		if !ok {
			break
		}
		ids = mergePair(ids, p, id)
	}
	return ids
}

// lowestMerge finds, among the adjacent pairs of ids that have a merge, the
// one learned earliest.
func lowestMerge(ids []TokenID, merges *MergeTable) (Pair, TokenID, bool) {
	var (
		best   Pair
		bestID TokenID
		found  bool
	)
	for i := 0; i+1 < len(ids); i++ {
		p := Pair{Left: ids[i], Right: ids[i+1]}
		id, ok := merges.Lookup(p)
		if ok && (!found || id < bestID) {
			best, bestID, found = p, id, true
		}
	}
	return best, bestID, found
}

// mergePair replaces every non-overlapping occurrence of p with id, scanning
// left to right. The write index never passes the read index, so ids is
// reused as the output buffer.
func mergePair(ids []TokenID, p Pair, id TokenID) []TokenID {
	w := 0
	for i := 0; i < len(ids); {
		if i+1 < len(ids) && ids[i] == p.Left && ids[i+1] == p.Right {
			ids[w] = id
			i += 2
		} else {
			ids[w] = ids[i]
			i++
		}
		w++
	}
	return ids[:w]
}
