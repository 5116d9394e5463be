package distance

// IndexPair selects two fingerprints by index.
type IndexPair struct {
	I int
	J int
}

// Batch computes the distance for every pair into out, which must have
// len(pairs) entries. An index outside hashes yields Mismatch for that entry
// only. It returns the number of Mismatch entries.
func Batch(hashes []string, pairs []IndexPair, out []int) int {
	n := len(hashes)
	invalid := 0
	for p, pair := range pairs {
		if pair.I < 0 || pair.I >= n || pair.J < 0 || pair.J >= n {
			out[p] = Mismatch
			invalid++
			continue
		}
		d := Hamming(hashes[pair.I], hashes[pair.J])
		if d == Mismatch {
			invalid++
		}
		out[p] = d
	}
	return invalid
}
