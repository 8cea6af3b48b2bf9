package review

import (
	"regexp"
	"sort"
	"strings"
)

// Segment is a run of learner text; Match marks a keyword hit.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// Highlight splits text into segments, marking case-insensitive literal occurrences of
// any keyword. Longer keywords win when two overlap.
func Highlight(text string, keywords []string) []Segment {
	if text == "" {
		return nil
	}
	re := keywordPattern(keywords)
	if re == nil {
		return []Segment{{Text: text}}
	}

	var out []Segment
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			out = append(out, Segment{Text: text[last:loc[0]]})
		}
		out = append(out, Segment{Text: text[loc[0]:loc[1]], Match: true})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, Segment{Text: text[last:]})
	}
	return out
}

func keywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
}
