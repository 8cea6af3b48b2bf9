package domain

import (
	"strings"
	"unicode"
)

// PaperPart is one of the three sections of an exam year.
type PaperPart string

const (
	Part1A PaperPart = "1A"
	Part1B PaperPart = "1B"
	Part2  PaperPart = "2"
)

// AllParts lists the parts in paper order.
var AllParts = []PaperPart{Part1A, Part1B, Part2}

const (
	unknownSource  = "Unknown"
	unknownYear    = "N/A"
	unknownYearKey = unknownSource + " " + unknownYear

	maxKeyTextRunes = 80
)

// ParsePaperPart recognises explicit part overrides such as "1a", "1B" or "Paper 2".
func ParsePaperPart(raw string) (PaperPart, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSpace(strings.TrimPrefix(s, "PAPER"))
	switch s {
	case "1A":
		return Part1A, true
	case "1B":
		return Part1B, true
	case "2":
		return Part2, true
	default:
		return "", false
	}
}

// Part computes the effective paper part. The rule is total: every question lands in 1A, 1B or 2.
func (q Question) Part() PaperPart {
	if part, ok := ParsePaperPart(q.PaperPart); ok {
		return part
	}
	if q.IsMultipleChoice() {
		return Part1A
	}
	if isElective(q.TopicID) || isElective(q.TopicName) || strings.Contains(strings.ToLower(q.Section), "elective") {
		return Part2
	}
	return Part1B
}

func isElective(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "elective")
}

// Sitting returns the trimmed source and year, substituting Unknown and N/A when absent.
func (q Question) Sitting() (source, year string) {
	source = strings.TrimSpace(q.Source)
	if source == "" {
		source = unknownSource
	}
	year = strings.TrimSpace(string(q.Year))
	if year == "" {
		year = unknownYear
	}
	return source, year
}

// YearKey groups questions by exam sitting, e.g. "DSE 2023".
func (q Question) YearKey() string {
	source, year := q.Sitting()
	return strings.TrimSpace(source + " " + year)
}

// Key is the stable identity of a question. Questions without id/uid fall back to a
// composite of topic, source, year and normalized text, so two identical id-less
// questions in the same topic and year share a key.
func (q Question) Key() string {
	if id := strings.TrimSpace(q.ID); id != "" {
		return id
	}
	if uid := strings.TrimSpace(q.UID); uid != "" {
		return uid
	}
	return strings.Join([]string{q.TopicID, q.Source, string(q.Year), NormalizeTextKey(q.Question)}, "|")
}

// NormalizeTextKey lowercases text, collapses non-alphanumeric runs to a single space and
// truncates the result.
func NormalizeTextKey(text string) string {
	var b strings.Builder
	pendingSpace := false
	n := 0
	for _, r := range strings.ToLower(text) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			if n+1 >= maxKeyTextRunes {
				break
			}
			b.WriteByte(' ')
			n++
			pendingSpace = false
		}
		if n >= maxKeyTextRunes {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// MCMarks is the weight of a multiple-choice question; unspecified means 1.
func (q Question) MCMarks() float64 {
	if q.Marks != nil {
		return *q.Marks
	}
	return 1
}

// LongMaxMarks resolves the mark allocation of a long question from marks, maxMarks,
// structuralAnswer.marks and structuralAnswer.totalMarks, in that order; default 0.
func (q Question) LongMaxMarks() float64 {
	candidates := []*float64{q.Marks, q.MaxMarks}
	if sa := q.StructuralAnswer; sa != nil {
		candidates = append(candidates, sa.Marks, sa.TotalMarks)
	}
	for _, c := range candidates {
		if c != nil {
			if *c < 0 {
				return 0
			}
			return *c
		}
	}
	return 0
}
