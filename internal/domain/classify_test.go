package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPartClassification(t *testing.T) {
	tests := []struct {
		name string
		q    Question
		want PaperPart
	}{
		{name: "mc defaults to 1A", q: Question{Type: TypeMultipleChoice}, want: Part1A},
		{name: "structural defaults to 1B", q: Question{Type: "Structural", TopicID: "topic3"}, want: Part1B},
		{name: "elective topic id", q: Question{Type: "Structural", TopicID: "elective1"}, want: Part2},
		{name: "elective topic name", q: Question{Type: "Structural", TopicName: "Elective 3: Analytical Chemistry"}, want: Part2},
		{name: "elective section", q: Question{Type: "Structural", Section: "Section B (Elective)"}, want: Part2},
		{name: "override wins over mc", q: Question{Type: TypeMultipleChoice, PaperPart: "2"}, want: Part2},
		{name: "override case insensitive", q: Question{Type: "Structural", TopicID: "elective1", PaperPart: "1b"}, want: Part1B},
		{name: "override with paper prefix", q: Question{Type: "Structural", PaperPart: "Paper 2"}, want: Part2},
		{name: "unknown override falls through", q: Question{Type: TypeMultipleChoice, PaperPart: "3C"}, want: Part1A},
		{name: "empty record", q: Question{}, want: Part1B},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.Part(); got != tc.want {
				t.Fatalf("expected part %s, got %s", tc.want, got)
			}
		})
	}
}

func TestYearKeyFallsBackToUnknown(t *testing.T) {
	if got := (Question{}).YearKey(); got != "Unknown N/A" {
		t.Fatalf("expected Unknown N/A, got %q", got)
	}
	if got := (Question{Source: " DSE ", Year: "2023"}).YearKey(); got != "DSE 2023" {
		t.Fatalf("expected DSE 2023, got %q", got)
	}
	if got := (Question{Source: "CE"}).YearKey(); got != "CE N/A" {
		t.Fatalf("expected CE N/A, got %q", got)
	}
}

func TestKeyPrefersStableIdentifiers(t *testing.T) {
	q := Question{ID: "q-1", UID: "u-1", Question: "What?"}
	if q.Key() != "q-1" {
		t.Fatalf("expected id, got %q", q.Key())
	}
	q.ID = ""
	if q.Key() != "u-1" {
		t.Fatalf("expected uid, got %q", q.Key())
	}

	a := Question{TopicID: "topic1", Source: "DSE", Year: "2023", Question: "  Which   gas is <b>inert</b>? "}
	b := Question{TopicID: "topic1", Source: "DSE", Year: "2023", Question: "which gas is b inert b"}
	if a.Key() != b.Key() {
		t.Fatalf("expected identical derived keys, got %q and %q", a.Key(), b.Key())
	}
	if a.Key() != "topic1|DSE|2023|which gas is b inert b" {
		t.Fatalf("unexpected derived key %q", a.Key())
	}
}

func TestNormalizeTextKeyTruncates(t *testing.T) {
	got := NormalizeTextKey(strings.Repeat("ab ", 100))
	if n := len([]rune(got)); n > 80 {
		t.Fatalf("expected at most 80 runes, got %d", n)
	}
	if strings.HasSuffix(got, " ") {
		t.Fatalf("expected no trailing space, got %q", got)
	}
}

func TestLongMaxMarksPriority(t *testing.T) {
	four, six, eight, ten := 4.0, 6.0, 8.0, 10.0
	q := Question{StructuralAnswer: &StructuralAnswer{Marks: &eight, TotalMarks: &ten}}
	if got := q.LongMaxMarks(); got != 8 {
		t.Fatalf("expected structuralAnswer.marks, got %v", got)
	}
	q.MaxMarks = &six
	if got := q.LongMaxMarks(); got != 6 {
		t.Fatalf("expected maxMarks, got %v", got)
	}
	q.Marks = &four
	if got := q.LongMaxMarks(); got != 4 {
		t.Fatalf("expected marks, got %v", got)
	}
	if got := (Question{}).LongMaxMarks(); got != 0 {
		t.Fatalf("expected default 0, got %v", got)
	}
	if got := (Question{Type: TypeMultipleChoice}).MCMarks(); got != 1 {
		t.Fatalf("expected default mc marks 1, got %v", got)
	}
}

func TestYearAcceptsNumbersAndStrings(t *testing.T) {
	var doc TopicDocument
	raw := `{"questions":[{"type":"Multiple-choice","year":2023},{"type":"Structural","year":"2012"},{"type":"Structural"}]}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Questions[0].Year != "2023" || doc.Questions[1].Year != "2012" || doc.Questions[2].Year != "" {
		t.Fatalf("unexpected years: %+v", doc.Questions)
	}
	if n, ok := doc.Questions[0].Year.Int(); !ok || n != 2023 {
		t.Fatalf("expected numeric year 2023, got %d %v", n, ok)
	}
}

func TestModeDurationsAreFixed(t *testing.T) {
	if ModePaper1.Duration().Seconds() != 9000 {
		t.Fatalf("paper1 duration %v", ModePaper1.Duration())
	}
	if ModePaper2.Duration().Seconds() != 3600 {
		t.Fatalf("paper2 duration %v", ModePaper2.Duration())
	}
}
