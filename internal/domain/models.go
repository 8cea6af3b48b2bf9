package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// TypeMultipleChoice is the only question type scored automatically. Anything else is structural.
const TypeMultipleChoice = "Multiple-choice"

// Topic is one entry of the topic catalogue; File names its JSON document.
type Topic struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	File string `json:"file" yaml:"file"`
}

// Elective reports whether the topic belongs to the elective (paper 2) syllabus.
func (t Topic) Elective() bool {
	return isElective(t.ID) || isElective(t.Name)
}

// TopicDocument is the JSON shape of a topic file.
type TopicDocument struct {
	Questions []Question `json:"questions"`
}

// Option is one labelled choice of a multiple-choice question.
type Option struct {
	Option  string `json:"option"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

// SubQuestion is a labelled part of a structural question.
type SubQuestion struct {
	SubLabel    string `json:"subLabel"`
	SubQuestion string `json:"subQuestion"`
	SubAnswer   string `json:"subAnswer"`
}

// StructuralAnswer holds the suggested answer of a structural question.
type StructuralAnswer struct {
	Keywords     []string      `json:"keywords,omitempty"`
	FullAnswer   string        `json:"fullAnswer,omitempty"`
	Image        string        `json:"image,omitempty"`
	SubQuestions []SubQuestion `json:"subQuestions,omitempty"`
	Marks        *float64      `json:"marks,omitempty"`
	TotalMarks   *float64      `json:"totalMarks,omitempty"`
}

// Year accepts both `2023` and `"2023"` in topic documents.
type Year string

func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = Year(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*y = Year(n.String())
	return nil
}

// Int returns the numeric year, or false when the year is not a number.
func (y Year) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(y)))
	return n, err == nil
}

// Question is an immutable record of the question snapshot.
type Question struct {
	ID               string            `json:"id,omitempty"`
	UID              string            `json:"uid,omitempty"`
	Type             string            `json:"type"`
	Source           string            `json:"source,omitempty"`
	Year             Year              `json:"year,omitempty"`
	TopicID          string            `json:"topicId,omitempty"`
	TopicName        string            `json:"topicName,omitempty"`
	Question         string            `json:"question"`
	Image            string            `json:"image,omitempty"`
	PaperPart        string            `json:"paperPart,omitempty"`
	Section          string            `json:"section,omitempty"`
	Options          []Option          `json:"options,omitempty"`
	CorrectOption    string            `json:"correctOption,omitempty"`
	Marks            *float64          `json:"marks,omitempty"`
	MaxMarks         *float64          `json:"maxMarks,omitempty"`
	StructuralAnswer *StructuralAnswer `json:"structuralAnswer,omitempty"`
}

// IsMultipleChoice reports whether the question is auto-scored.
func (q Question) IsMultipleChoice() bool {
	return q.Type == TypeMultipleChoice
}

// HasOption reports whether label names one of the question's options.
func (q Question) HasOption(label string) bool {
	for _, opt := range q.Options {
		if opt.Option == label {
			return true
		}
	}
	return false
}

// Label is a short human-readable caption used for statistics records.
func (q Question) Label() string {
	text := NormalizeTextKey(q.Question)
	if meta := q.YearKey(); meta != unknownYearKey {
		return strings.TrimSpace(meta + " " + text)
	}
	return text
}

// TopicKey is the statistics key of the question's topic.
func (q Question) TopicKey() string {
	switch {
	case q.TopicID != "":
		return q.TopicID
	case q.TopicName != "":
		return q.TopicName
	default:
		return "unknown"
	}
}

// TopicLabel is the label recorded for the topic bucket.
func (q Question) TopicLabel() string {
	if q.TopicName != "" {
		return q.TopicName
	}
	return q.TopicKey()
}

// Mode selects which sections of a year form an attempt.
type Mode string

const (
	ModePaper1 Mode = "paper1"
	ModePaper2 Mode = "paper2"
)

// Valid reports whether m is one of the supported paper modes.
func (m Mode) Valid() bool {
	return m == ModePaper1 || m == ModePaper2
}

// Parts lists the paper parts a mode covers, in section order.
func (m Mode) Parts() []PaperPart {
	switch m {
	case ModePaper1:
		return []PaperPart{Part1A, Part1B}
	case ModePaper2:
		return []PaperPart{Part2}
	default:
		return nil
	}
}

// Duration is the fixed time allowance of a mode, independent of question count.
func (m Mode) Duration() time.Duration {
	switch m {
	case ModePaper1:
		return 9000 * time.Second
	case ModePaper2:
		return 3600 * time.Second
	default:
		return 0
	}
}

// ResponseKind distinguishes option selections from free text.
type ResponseKind string

const (
	ResponseMCQ        ResponseKind = "mcq"
	ResponseStructural ResponseKind = "structural"
)

// Response is the learner's latest answer to one question.
type Response struct {
	Type     ResponseKind `json:"type"`
	Selected string       `json:"selected,omitempty"`
	Text     string       `json:"text,omitempty"`
}

// Outcome of one recorded question attempt.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeCorrect
	OutcomeIncorrect
)

// OutcomeOf converts a boolean grading into an Outcome.
func OutcomeOf(correct bool) Outcome {
	if correct {
		return OutcomeCorrect
	}
	return OutcomeIncorrect
}

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// StatRecord is one aggregate counter.
type StatRecord struct {
	Attempts  int    `json:"attempts"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
	Label     string `json:"label,omitempty"`
}

// Statistics holds the three aggregate buckets.
type Statistics struct {
	Questions map[string]StatRecord `json:"questions"`
	Topics    map[string]StatRecord `json:"topics"`
	Years     map[string]StatRecord `json:"years"`
}

// NewStatistics returns empty, writable buckets.
func NewStatistics() Statistics {
	return Statistics{
		Questions: make(map[string]StatRecord),
		Topics:    make(map[string]StatRecord),
		Years:     make(map[string]StatRecord),
	}
}

// Normalize fills nil buckets left by partially written blobs.
func (s *Statistics) Normalize() {
	if s.Questions == nil {
		s.Questions = make(map[string]StatRecord)
	}
	if s.Topics == nil {
		s.Topics = make(map[string]StatRecord)
	}
	if s.Years == nil {
		s.Years = make(map[string]StatRecord)
	}
}

// MCBreakdown is one multiple-choice line of a history entry.
type MCBreakdown struct {
	Question string `json:"question"`
	Correct  bool   `json:"correct"`
}

// LongBreakdown is one long-answer line of a history entry.
type LongBreakdown struct {
	Question string  `json:"question"`
	Awarded  float64 `json:"awarded"`
	MaxMarks float64 `json:"maxMarks"`
}

// Breakdown lists per-question results of a finalized attempt.
type Breakdown struct {
	MC   []MCBreakdown   `json:"mc"`
	Long []LongBreakdown `json:"long"`
}

// AttemptHistoryEntry is the saved summary of a finalized attempt.
type AttemptHistoryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	YearKey         string    `json:"yearKey"`
	Mode            Mode      `json:"mode"`
	DurationSeconds int       `json:"durationSeconds"`
	TimeUsedSeconds int       `json:"timeUsedSeconds"`
	MCScore         float64   `json:"mcScore"`
	MCTotal         float64   `json:"mcTotal"`
	LQScore         float64   `json:"lqScore"`
	LQTotal         float64   `json:"lqTotal"`
	Breakdown       Breakdown `json:"breakdown"`
}
