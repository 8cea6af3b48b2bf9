package app

import (
	"context"
	"log/slog"
	"sync"

	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/review"
	"github.com/google/uuid"
)

// PracticeView is the learner-facing position in a practice run. Question is nil once the
// run is completed.
type PracticeView struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Index     int              `json:"index"`
	Total     int              `json:"total"`
	Question  *domain.Question `json:"question,omitempty"`
	Checked   bool             `json:"checked"`
	Completed bool             `json:"completed"`
}

// CheckResult is the feedback for one checked practice question.
type CheckResult struct {
	QuestionKey string `json:"questionKey"`
	Outcome     string `json:"outcome"`

	// multiple choice
	Selected      string `json:"selected,omitempty"`
	CorrectOption string `json:"correctOption,omitempty"`

	// structural
	Segments     []review.Segment     `json:"segments,omitempty"`
	Keywords     []string             `json:"keywords,omitempty"`
	FullAnswer   string               `json:"fullAnswer,omitempty"`
	SubQuestions []domain.SubQuestion `json:"subQuestions,omitempty"`
}

type practiceRun struct {
	id        string
	title     string
	questions []domain.Question
	index     int
	checked   bool
}

func (r *practiceRun) view() PracticeView {
	v := PracticeView{
		ID:      r.id,
		Title:   r.title,
		Index:   r.index,
		Total:   len(r.questions),
		Checked: r.checked,
	}
	if r.index >= len(r.questions) {
		v.Completed = true
		return v
	}
	q := r.questions[r.index]
	v.Question = &q
	return v
}

// PracticeService runs untimed question-by-question practice. Starting a new run replaces
// the previous one.
type PracticeService struct {
	stats  *StatisticsRecorder
	logger *slog.Logger

	mu  sync.Mutex
	run *practiceRun
}

func NewPracticeService(stats *StatisticsRecorder, logger *slog.Logger) *PracticeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PracticeService{stats: stats, logger: logger}
}

func (p *PracticeService) Start(_ context.Context, title string, questions []domain.Question) (PracticeView, error) {
	if len(questions) == 0 {
		return PracticeView{}, domain.ErrNoQuestionsAvailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.run = &practiceRun{
		id:        uuid.NewString(),
		title:     title,
		questions: append([]domain.Question(nil), questions...),
	}
	return p.run.view(), nil
}

func (p *PracticeService) Current() (PracticeView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return PracticeView{}, domain.ErrNoPracticeSession
	}
	return p.run.view(), nil
}

// Check grades the current question. The first check of a question records a statistics
// attempt; re-checking returns feedback without recording again.
func (p *PracticeService) Check(ctx context.Context, resp domain.Response) (CheckResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil || p.run.index >= len(p.run.questions) {
		return CheckResult{}, domain.ErrNoPracticeSession
	}
	q := p.run.questions[p.run.index]

	var (
		result  CheckResult
		outcome domain.Outcome
	)
	if q.IsMultipleChoice() {
		if resp.Selected == "" {
			return CheckResult{}, domain.ErrInvalidResponse
		}
		if len(q.Options) > 0 && !q.HasOption(resp.Selected) {
			return CheckResult{}, domain.ErrOptionNotFound
		}
		outcome = domain.OutcomeOf(review.IsCorrect(q, resp.Selected))
		result = CheckResult{Selected: resp.Selected, CorrectOption: q.CorrectOption}
	} else {
		outcome = domain.OutcomeUnknown
		if sa := q.StructuralAnswer; sa != nil {
			result = CheckResult{
				Segments:     review.Highlight(resp.Text, sa.Keywords),
				Keywords:     sa.Keywords,
				FullAnswer:   sa.FullAnswer,
				SubQuestions: sa.SubQuestions,
			}
		} else {
			result = CheckResult{Segments: review.Highlight(resp.Text, nil)}
		}
	}
	result.QuestionKey = q.Key()
	result.Outcome = outcome.String()

	if !p.run.checked {
		p.run.checked = true
		if err := p.stats.RecordQuestionAttempt(ctx, q, outcome); err != nil {
			p.logger.Error("record practice attempt failed", "question", q.Key(), "error", err)
		}
	}
	return result, nil
}

// Next moves to the following question; calling it without Check skips the question.
func (p *PracticeService) Next() (PracticeView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return PracticeView{}, domain.ErrNoPracticeSession
	}
	if p.run.index < len(p.run.questions) {
		p.run.index++
		p.run.checked = false
	}
	return p.run.view(), nil
}
