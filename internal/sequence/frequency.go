package sequence

import "sort"

// Frequent is a candidate together with its support count.
type Frequent struct {
	Candidate Candidate `json:"-"`
	Count     int       `json:"count"`
}

// FrequencyMap maps a candidate key to the frequent candidate. Only
// candidates meeting the support threshold are stored.
type FrequencyMap map[string]Frequent

// Add stores c with count n.
func (fm FrequencyMap) Add(c Candidate, n int) {
	fm[c.Key()] = Frequent{Candidate: c, Count: n}
}

// Has reports whether c is present.
func (fm FrequencyMap) Has(c Candidate) bool {
	_, ok := fm[c.Key()]
	return ok
}

// Count returns the stored count of c and whether it was present.
func (fm FrequencyMap) Count(c Candidate) (int, bool) {
	f, ok := fm[c.Key()]
	return f.Count, ok
}

// Sorted returns the entries ordered by descending count, then by key.
func (fm FrequencyMap) Sorted() []Frequent {
	out := make([]Frequent, 0, len(fm))
	for _, f := range fm {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Candidate.Key() < out[j].Candidate.Key()
	})
	return out
}

// Symbols returns the distinct symbols appearing in any stored candidate,
// sorted.
func (fm FrequencyMap) Symbols() []Symbol {
	seen := make(map[Symbol]struct{})
	for _, f := range fm {
		for _, s := range f.Candidate.Symbols {
			seen[s] = struct{}{}
		}
	}
	out := make([]Symbol, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
