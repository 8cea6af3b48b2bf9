// Package paper groups the question snapshot into exam years and paper parts.
package paper

import (
	"sort"

	"exam-paper-service/internal/domain"
)

// YearGroup holds one exam sitting split into its three paper parts.
type YearGroup struct {
	Key    string                                `json:"key"`
	Source string                                `json:"source"`
	Year   string                                `json:"year"`
	Parts  map[domain.PaperPart][]domain.Question `json:"parts"`
}

// Questions returns the questions of one part (nil when the part is empty).
func (g YearGroup) Questions(part domain.PaperPart) []domain.Question {
	return g.Parts[part]
}

// Count is the number of questions across all parts.
func (g YearGroup) Count() int {
	n := 0
	for _, qs := range g.Parts {
		n += len(qs)
	}
	return n
}

// Index maps year keys to their groups.
type Index map[string]YearGroup

// YearGroup looks up one sitting.
func (idx Index) YearGroup(key string) (YearGroup, bool) {
	g, ok := idx[key]
	return g, ok
}

// BuildIndex partitions a snapshot by year key and effective paper part. Question order
// within a part follows snapshot order.
func BuildIndex(questions []domain.Question) Index {
	idx := make(Index)
	for _, q := range questions {
		key := q.YearKey()
		group, ok := idx[key]
		if !ok {
			source, year := q.Sitting()
			group = YearGroup{
				Key:    key,
				Source: source,
				Year:   year,
				Parts:  make(map[domain.PaperPart][]domain.Question, len(domain.AllParts)),
			}
		}
		part := q.Part()
		group.Parts[part] = append(group.Parts[part], q)
		idx[key] = group
	}
	return idx
}

var yearSourceOrder = map[string]int{"DSE": 0, "AL": 1, "CE": 2}

// SortedKeys orders year keys by source (DSE, AL, CE, then others alphabetically) and
// then by year ascending; non-numeric years sort after numeric ones.
func SortedKeys(idx Index) []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		gi, gj := idx[keys[i]], idx[keys[j]]
		oi, iKnown := yearSourceOrder[gi.Source]
		oj, jKnown := yearSourceOrder[gj.Source]
		switch {
		case iKnown && jKnown && oi != oj:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		case !iKnown && gi.Source != gj.Source:
			return gi.Source < gj.Source
		}
		return lessYear(domain.Year(gi.Year), domain.Year(gj.Year))
	})
	return keys
}

func lessYear(a, b domain.Year) bool {
	ai, aok := a.Int()
	bi, bok := b.Int()
	switch {
	case aok && bok:
		return ai < bi
	case aok != bok:
		return aok
	default:
		return a < b
	}
}
