// Package review scores finished paper attempts and tracks manual marking.
package review

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"exam-paper-service/internal/domain"
)

// MCRow is the automatic result of one multiple-choice question.
type MCRow struct {
	Question  domain.Question `json:"question"`
	Selected  string          `json:"selected,omitempty"`
	IsCorrect bool            `json:"isCorrect"`
	Marks     float64         `json:"marks"`
}

// LongRow is one long-answer question awaiting or holding a manual mark.
type LongRow struct {
	Question domain.Question `json:"question"`
	UserText string          `json:"userText"`
	MaxMarks float64         `json:"maxMarks"`
	Awarded  float64         `json:"awarded"`
}

// Data is built once when an attempt finishes. MC totals are fixed at build time;
// only manual marks change afterwards.
type Data struct {
	MCQuestions    []MCRow            `json:"mcQuestions"`
	LongQuestions  []LongRow          `json:"longQuestions"`
	MCTotalMarks   float64            `json:"mcTotalMarks"`
	MCScore        float64            `json:"mcScore"`
	LongTotalMarks float64            `json:"longTotalMarks"`
	ManualMarks    map[string]float64 `json:"manualMarks"`
}

// Build scores every multiple-choice response and stages long answers at zero marks.
// A question without a response is scored as incorrect.
func Build(questions []domain.Question, responses map[string]domain.Response) *Data {
	d := &Data{ManualMarks: make(map[string]float64)}
	for _, q := range questions {
		resp := responses[q.Key()]
		if q.IsMultipleChoice() {
			row := MCRow{
				Question:  q,
				Selected:  resp.Selected,
				IsCorrect: IsCorrect(q, resp.Selected),
				Marks:     q.MCMarks(),
			}
			d.MCTotalMarks += row.Marks
			if row.IsCorrect {
				d.MCScore += row.Marks
			}
			d.MCQuestions = append(d.MCQuestions, row)
			continue
		}
		row := LongRow{
			Question: q,
			UserText: resp.Text,
			MaxMarks: q.LongMaxMarks(),
		}
		d.LongTotalMarks += row.MaxMarks
		d.LongQuestions = append(d.LongQuestions, row)
	}
	return d
}

// IsCorrect reports whether a selection exists and matches the correct option.
func IsCorrect(q domain.Question, selected string) bool {
	return selected != "" && selected == q.CorrectOption
}

// ParseMark converts raw marker input to a mark. Non-numeric, non-finite and negative
// input all become 0.
func ParseMark(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// SetManualMark records the latest mark for a long question. Negative or non-finite
// values become 0; marks above maxMarks are kept as entered. It returns the stored value.
func (d *Data) SetManualMark(key string, value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		value = 0
	}
	for i := range d.LongQuestions {
		row := &d.LongQuestions[i]
		if row.Question.Key() != key {
			continue
		}
		row.Awarded = value
		d.ManualMarks[key] = value
		return value, nil
	}
	return 0, domain.ErrQuestionNotFound
}

// Marked reports whether a mark has been entered for key.
func (d *Data) Marked(key string) bool {
	_, ok := d.ManualMarks[key]
	return ok
}

// MissingMarks lists long questions with a positive allocation and no mark yet.
func (d *Data) MissingMarks() []string {
	var missing []string
	for _, row := range d.LongQuestions {
		key := row.Question.Key()
		if row.MaxMarks > 0 && !d.Marked(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Scoreboard is a projection of Data; it is recomputed, never stored.
type Scoreboard struct {
	MCScore   float64 `json:"mcScore"`
	MCTotal   float64 `json:"mcTotal"`
	LongScore float64 `json:"longScore"`
	LongTotal float64 `json:"longTotal"`
	Score     float64 `json:"score"`
	Total     float64 `json:"total"`
}

// Scoreboard sums the current manual marks with the fixed MC result.
func (d *Data) Scoreboard() Scoreboard {
	sb := Scoreboard{
		MCScore:   d.MCScore,
		MCTotal:   d.MCTotalMarks,
		LongTotal: d.LongTotalMarks,
	}
	for _, row := range d.LongQuestions {
		sb.LongScore += row.Awarded
	}
	sb.Score = sb.MCScore + sb.LongScore
	sb.Total = sb.MCTotal + sb.LongTotal
	return sb
}

// LongOutcome grades a long question for statistics: unmarked or unallocated rows are
// unknown, otherwise only full marks count as correct.
func (d *Data) LongOutcome(row LongRow) domain.Outcome {
	if row.MaxMarks <= 0 || !d.Marked(row.Question.Key()) {
		return domain.OutcomeUnknown
	}
	return domain.OutcomeOf(row.Awarded >= row.MaxMarks)
}

// Clone returns a copy that shares no mutable state with d.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	c := *d
	c.MCQuestions = slices.Clone(d.MCQuestions)
	c.LongQuestions = slices.Clone(d.LongQuestions)
	c.ManualMarks = maps.Clone(d.ManualMarks)
	return &c
}
