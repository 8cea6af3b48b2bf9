package review

import (
	"testing"

	"exam-paper-service/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func mcQuestion(id, correct string, marks *float64) domain.Question {
	return domain.Question{
		ID:            id,
		Type:          domain.TypeMultipleChoice,
		Options:       []domain.Option{{Option: "A"}, {Option: "B"}, {Option: "C"}},
		CorrectOption: correct,
		Marks:         marks,
	}
}

func longQuestion(id string, maxMarks *float64) domain.Question {
	return domain.Question{ID: id, Type: "Structural", MaxMarks: maxMarks}
}

func TestBuildScoresMultipleChoice(t *testing.T) {
	questions := []domain.Question{
		mcQuestion("q1", "A", nil),
		mcQuestion("q2", "B", ptr(2)),
		mcQuestion("q3", "C", ptr(3)),
		mcQuestion("q4", "A", nil),
	}
	responses := map[string]domain.Response{
		"q1": {Type: domain.ResponseMCQ, Selected: "A"},
		"q2": {Type: domain.ResponseMCQ, Selected: "B"},
		"q3": {Type: domain.ResponseMCQ, Selected: "A"},
	}

	d := Build(questions, responses)
	if d.MCTotalMarks != 7 {
		t.Fatalf("expected total 7, got %v", d.MCTotalMarks)
	}
	if d.MCScore != 3 {
		t.Fatalf("expected score 3, got %v", d.MCScore)
	}
	if d.MCQuestions[3].IsCorrect || d.MCQuestions[3].Selected != "" {
		t.Fatalf("expected unanswered question to be incorrect, got %+v", d.MCQuestions[3])
	}

	again := Build(questions, responses)
	if again.MCScore != d.MCScore || again.MCTotalMarks != d.MCTotalMarks {
		t.Fatalf("expected deterministic scoring, got %v/%v vs %v/%v", again.MCScore, again.MCTotalMarks, d.MCScore, d.MCTotalMarks)
	}
}

func TestIsCorrect(t *testing.T) {
	tests := []struct {
		name     string
		correct  string
		selected string
		want     bool
	}{
		{name: "match", correct: "A", selected: "A", want: true},
		{name: "mismatch", correct: "A", selected: "B", want: false},
		{name: "no selection", correct: "A", selected: "", want: false},
		{name: "no key and no selection", correct: "", selected: "", want: false},
		{name: "case sensitive labels", correct: "A", selected: "a", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(domain.Question{CorrectOption: tc.correct}, tc.selected); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestParseMark(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: "3", want: 3},
		{raw: " 2.5 ", want: 2.5},
		{raw: "-1", want: 0},
		{raw: "abc", want: 0},
		{raw: "", want: 0},
		{raw: "NaN", want: 0},
		{raw: "Inf", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			if got := ParseMark(tc.raw); got != tc.want {
				t.Fatalf("ParseMark(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestManualMarksLastWriteWins(t *testing.T) {
	d := Build([]domain.Question{mcQuestion("q1", "A", nil), longQuestion("l1", ptr(6)), longQuestion("l2", nil)}, map[string]domain.Response{
		"q1": {Type: domain.ResponseMCQ, Selected: "A"},
		"l1": {Type: domain.ResponseStructural, Text: "answer"},
	})

	if got := d.LongQuestions[0].UserText; got != "answer" {
		t.Fatalf("expected user text staged, got %q", got)
	}
	if got := d.LongQuestions[0].Awarded; got != 0 {
		t.Fatalf("expected staged awarded 0, got %v", got)
	}

	if _, err := d.SetManualMark("l1", 5); err != nil {
		t.Fatalf("set mark: %v", err)
	}
	first := d.Scoreboard()
	if _, err := d.SetManualMark("l1", 5); err != nil {
		t.Fatalf("set mark: %v", err)
	}
	if second := d.Scoreboard(); second != first {
		t.Fatalf("expected idempotent scoreboard, got %+v then %+v", first, second)
	}
	if first.LongScore != 5 || first.LongTotal != 6 || first.Score != 6 || first.Total != 7 {
		t.Fatalf("unexpected scoreboard %+v", first)
	}

	if _, err := d.SetManualMark("l1", 2); err != nil {
		t.Fatalf("set mark: %v", err)
	}
	if sb := d.Scoreboard(); sb.LongScore != 2 {
		t.Fatalf("expected last write to win, got %+v", sb)
	}
	if d.ManualMarks["l1"] != d.LongQuestions[0].Awarded {
		t.Fatalf("expected manual marks to mirror rows")
	}
}

func TestSetManualMarkClampsOnlyInvalidInput(t *testing.T) {
	d := Build([]domain.Question{longQuestion("l1", ptr(4))}, nil)

	if got, _ := d.SetManualMark("l1", -3); got != 0 {
		t.Fatalf("expected negative clamped to 0, got %v", got)
	}
	if got, _ := d.SetManualMark("l1", 5); got != 5 {
		t.Fatalf("expected mark above maximum kept, got %v", got)
	}
	if sb := d.Scoreboard(); sb.LongScore != 5 || sb.LongTotal != 4 {
		t.Fatalf("expected 5/4 long scoreboard, got %+v", sb)
	}
	if _, err := d.SetManualMark("missing", 1); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestMissingMarksAndOutcomes(t *testing.T) {
	d := Build([]domain.Question{longQuestion("l1", ptr(4)), longQuestion("l2", ptr(2)), longQuestion("l3", nil)}, nil)

	missing := d.MissingMarks()
	if len(missing) != 2 || missing[0] != "l1" || missing[1] != "l2" {
		t.Fatalf("expected l1 and l2 missing, got %v", missing)
	}

	_, _ = d.SetManualMark("l1", 3)
	_, _ = d.SetManualMark("l2", 2)
	_, _ = d.SetManualMark("l3", 1)

	if got := d.LongOutcome(d.LongQuestions[0]); got != domain.OutcomeIncorrect {
		t.Fatalf("expected partial marks incorrect, got %v", got)
	}
	if got := d.LongOutcome(d.LongQuestions[1]); got != domain.OutcomeCorrect {
		t.Fatalf("expected full marks correct, got %v", got)
	}
	if got := d.LongOutcome(d.LongQuestions[2]); got != domain.OutcomeUnknown {
		t.Fatalf("expected unallocated question unknown, got %v", got)
	}
	if len(d.MissingMarks()) != 0 {
		t.Fatalf("expected no missing marks")
	}
}

func TestHighlight(t *testing.T) {
	segs := Highlight("Ionic bonding forms an IONIC lattice", []string{"ionic", "", "ionic bonding"})
	want := []Segment{
		{Text: "Ionic bonding", Match: true},
		{Text: " forms an "},
		{Text: "IONIC", Match: true},
		{Text: " lattice"},
	}
	if len(segs) != len(want) {
		t.Fatalf("expected %d segments, got %+v", len(want), segs)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Fatalf("segment %d: expected %+v, got %+v", i, want[i], segs[i])
		}
	}

	if segs := Highlight("a (b) c", []string{"(b)"}); len(segs) != 3 || !segs[1].Match {
		t.Fatalf("expected literal keyword match, got %+v", segs)
	}
	if segs := Highlight("plain", nil); len(segs) != 1 || segs[0].Match {
		t.Fatalf("expected single plain segment, got %+v", segs)
	}
	if segs := Highlight("", []string{"x"}); segs != nil {
		t.Fatalf("expected nil for empty text, got %+v", segs)
	}
}
