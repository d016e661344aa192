package bpe

// PairStats holds adjacent pair counts over a token sequence along with the
// order in which each distinct pair was first seen.
type PairStats struct {
	counts map[Pair]int
	order  []Pair
}

// CountPairs counts every adjacent pair (ids[i], ids[i+1]). Sequences shorter
// than two yield empty stats.
func CountPairs(ids []TokenID) *PairStats {
	s := &PairStats{counts: make(map[Pair]int)}
	for i := 0; i+1 < len(ids); i++ {
		p := Pair{Left: ids[i], Right: ids[i+1]}
		if _, seen := s.counts[p]; !seen {
			s.order = append(s.order, p)
		}
		s.counts[p]++
	}
	return s
}

// MostFrequent returns the pair with the highest count. Ties go to the pair
// discovered first, i.e. the one whose first occurrence is leftmost.
func (s *PairStats) MostFrequent() (Pair, int, bool) {
	var (
		best      Pair
		bestCount int
	)
	for _, p := range s.order {
		if c := s.counts[p]; c > bestCount {
			best, bestCount = p, c
		}
	}
	return best, bestCount, bestCount > 0
}
