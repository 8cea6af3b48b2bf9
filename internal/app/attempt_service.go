package app

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/paper"
	"exam-paper-service/internal/review"
	"github.com/google/uuid"
)

// PaperSource resolves year keys to grouped questions.
type PaperSource interface {
	YearGroup(key string) (paper.YearGroup, bool)
}

// HistoryRepository appends finalized attempt summaries.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, entry domain.AttemptHistoryEntry) error
}

// Section is one paper part of an attempt, in paper order.
type Section struct {
	Part      domain.PaperPart  `json:"part"`
	Questions []domain.Question `json:"questions"`
}

// Attempt is a timed sitting of one year and mode.
type Attempt struct {
	ID               string                     `json:"id"`
	YearKey          string                     `json:"yearKey"`
	Mode             domain.Mode                `json:"mode"`
	Sections         []Section                  `json:"sections"`
	Responses        map[string]domain.Response `json:"responses"`
	DurationSeconds  int                        `json:"durationSeconds"`
	RemainingSeconds int                        `json:"remainingSeconds"`
	StartedAt        time.Time                  `json:"startedAt"`
	Finished         bool                       `json:"finished"`
	AutoFinished     bool                       `json:"autoFinished"`
	FinishedAt       time.Time                  `json:"finishedAt,omitzero"`
	Review           *review.Data               `json:"review,omitempty"`

	questions map[string]domain.Question
	countdown *countdown
}

// Questions returns all attempt questions in section order.
func (a *Attempt) Questions() []domain.Question {
	var out []domain.Question
	for _, s := range a.Sections {
		out = append(out, s.Questions...)
	}
	return out
}

// TimeUsedSeconds is the elapsed part of the allowance.
func (a *Attempt) TimeUsedSeconds() int {
	return a.DurationSeconds - a.RemainingSeconds
}

func (a *Attempt) snapshot() *Attempt {
	c := *a
	c.Responses = maps.Clone(a.Responses)
	c.Review = a.Review.Clone()
	c.questions = nil
	c.countdown = nil
	return &c
}

// EventType names an attempt transition.
type EventType string

const (
	EventStarted   EventType = "started"
	EventTick      EventType = "tick"
	EventFinished  EventType = "finished"
	EventAbandoned EventType = "abandoned"
	EventFinalized EventType = "finalized"
)

// Event is broadcast to subscribers on every transition. Tick events carry only the
// remaining time.
type Event struct {
	Type             EventType                   `json:"type"`
	AttemptID        string                      `json:"attemptId"`
	RemainingSeconds int                         `json:"remainingSeconds"`
	Attempt          *Attempt                    `json:"attempt,omitempty"`
	History          *domain.AttemptHistoryEntry `json:"history,omitempty"`
}

// Option configures an AttemptService.
type Option func(*AttemptService)

// WithClock replaces time.Now for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AttemptService) { s.now = now }
}

// WithTicker replaces the real ticker used by the countdown.
func WithTicker(f TickerFactory) Option {
	return func(s *AttemptService) { s.newTicker = f }
}

// WithTickInterval changes how often the countdown decrements; default one second.
func WithTickInterval(d time.Duration) Option {
	return func(s *AttemptService) { s.tickInterval = d }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *AttemptService) { s.logger = l }
}

// AttemptService owns the single attempt slot and drives it through
// running, finished and finalized.
type AttemptService struct {
	papers  PaperSource
	stats   *StatisticsRecorder
	history HistoryRepository

	now          func() time.Time
	newTicker    TickerFactory
	tickInterval time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	current     *Attempt
	subscribers map[chan Event]struct{}
}

func NewAttemptService(papers PaperSource, stats *StatisticsRecorder, history HistoryRepository, opts ...Option) *AttemptService {
	s := &AttemptService{
		papers:       papers,
		stats:        stats,
		history:      history,
		now:          time.Now,
		newTicker:    newRealTicker,
		tickInterval: time.Second,
		logger:       slog.Default(),
		subscribers:  make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a timed attempt for the year and mode. An occupied slot is only replaced
// after confirmation; the replaced attempt is discarded without being saved.
func (s *AttemptService) Start(ctx context.Context, yearKey string, mode domain.Mode, confirm Confirmer) (*Attempt, error) {
	if !mode.Valid() {
		return nil, domain.ErrInvalidMode
	}
	group, ok := s.papers.YearGroup(yearKey)
	if !ok {
		return nil, domain.ErrNoQuestionsAvailable
	}
	sections := buildSections(group, mode)
	if len(sections) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if !confirmed(ctx, confirm, PromptDiscardAttempt) {
			return nil, domain.ErrConfirmationDeclined
		}
		old := s.current
		old.countdown.cancel()
		s.current = nil
		s.broadcastLocked(Event{Type: EventAbandoned, AttemptID: old.ID, RemainingSeconds: old.RemainingSeconds})
	}

	duration := int(mode.Duration() / time.Second)
	a := &Attempt{
		ID:               uuid.NewString(),
		YearKey:          group.Key,
		Mode:             mode,
		Sections:         sections,
		Responses:        make(map[string]domain.Response),
		DurationSeconds:  duration,
		RemainingSeconds: duration,
		StartedAt:        s.now(),
		questions:        make(map[string]domain.Question),
	}
	for _, sec := range sections {
		for _, q := range sec.Questions {
			a.questions[q.Key()] = q
		}
	}
	s.current = a
	a.countdown = startCountdown(s.newTicker(s.tickInterval), func() bool { return s.tick(a) })

	snap := a.snapshot()
	s.broadcastLocked(Event{Type: EventStarted, AttemptID: a.ID, RemainingSeconds: a.RemainingSeconds, Attempt: snap})
	return snap, nil
}

func buildSections(group paper.YearGroup, mode domain.Mode) []Section {
	var sections []Section
	for _, part := range mode.Parts() {
		qs := group.Questions(part)
		if len(qs) == 0 {
			continue
		}
		sections = append(sections, Section{Part: part, Questions: qs})
	}
	return sections
}

// Respond stores the latest answer for a question of the running attempt.
func (s *AttemptService) Respond(_ context.Context, key string, resp domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.runningLocked()
	if err != nil {
		return err
	}
	q, ok := a.questions[key]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if q.IsMultipleChoice() {
		if resp.Type != domain.ResponseMCQ {
			return domain.ErrInvalidResponse
		}
		if resp.Selected != "" && len(q.Options) > 0 && !q.HasOption(resp.Selected) {
			return domain.ErrOptionNotFound
		}
		a.Responses[key] = domain.Response{Type: domain.ResponseMCQ, Selected: resp.Selected}
		return nil
	}
	if resp.Type != domain.ResponseStructural {
		return domain.ErrInvalidResponse
	}
	a.Responses[key] = domain.Response{Type: domain.ResponseStructural, Text: resp.Text}
	return nil
}

// tick is the countdown callback. It reports true when the countdown should stop,
// including when a is no longer the running attempt in the slot.
func (s *AttemptService) tick(a *Attempt) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != a || a.Finished {
		return true
	}
	if a.RemainingSeconds > 0 {
		a.RemainingSeconds--
	}
	s.broadcastLocked(Event{Type: EventTick, AttemptID: a.ID, RemainingSeconds: a.RemainingSeconds})
	if a.RemainingSeconds <= 0 {
		s.finishLocked(a, true)
		return true
	}
	return false
}

// Finish ends the running attempt and builds its review. Finishing a finished attempt
// returns it unchanged.
func (s *AttemptService) Finish(_ context.Context, auto bool) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.current
	if a == nil {
		return nil, domain.ErrNoActiveAttempt
	}
	if !a.Finished {
		s.finishLocked(a, auto)
	}
	return a.snapshot(), nil
}

func (s *AttemptService) finishLocked(a *Attempt, auto bool) {
	a.countdown.cancel()
	if a.RemainingSeconds < 0 {
		a.RemainingSeconds = 0
	}
	a.Finished = true
	a.AutoFinished = auto
	a.FinishedAt = s.now()
	a.Review = review.Build(a.Questions(), a.Responses)
	s.broadcastLocked(Event{Type: EventFinished, AttemptID: a.ID, RemainingSeconds: a.RemainingSeconds, Attempt: a.snapshot()})
}

// SetManualMark parses raw marker input for a long question and returns the new scoreboard.
func (s *AttemptService) SetManualMark(_ context.Context, key, raw string) (review.Scoreboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.finishedLocked()
	if err != nil {
		return review.Scoreboard{}, err
	}
	if _, err := a.Review.SetManualMark(key, review.ParseMark(raw)); err != nil {
		return review.Scoreboard{}, err
	}
	return a.Review.Scoreboard(), nil
}

// Scoreboard returns the current totals of the finished attempt.
func (s *AttemptService) Scoreboard() (review.Scoreboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.finishedLocked()
	if err != nil {
		return review.Scoreboard{}, err
	}
	return a.Review.Scoreboard(), nil
}

// Finalize saves the history entry and statistics of the finished attempt and clears the
// slot. Missing marks count as zero once confirmed. Persistence failures are logged only.
func (s *AttemptService) Finalize(ctx context.Context, confirm Confirmer) (domain.AttemptHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.finishedLocked()
	if err != nil {
		return domain.AttemptHistoryEntry{}, err
	}
	if len(a.Review.MissingMarks()) > 0 && !confirmed(ctx, confirm, PromptMissingMarks) {
		return domain.AttemptHistoryEntry{}, domain.ErrConfirmationDeclined
	}

	entry := historyEntry(a, s.now())
	if err := s.history.AppendHistory(ctx, entry); err != nil {
		s.logger.Error("append attempt history failed", "attempt", a.ID, "error", err)
	}
	for _, row := range a.Review.MCQuestions {
		s.record(ctx, row.Question, domain.OutcomeOf(row.IsCorrect))
	}
	for _, row := range a.Review.LongQuestions {
		s.record(ctx, row.Question, a.Review.LongOutcome(row))
	}

	s.current = nil
	s.broadcastLocked(Event{Type: EventFinalized, AttemptID: a.ID, History: &entry})
	return entry, nil
}

func (s *AttemptService) record(ctx context.Context, q domain.Question, outcome domain.Outcome) {
	if err := s.stats.RecordQuestionAttempt(ctx, q, outcome); err != nil {
		s.logger.Error("record question attempt failed", "question", q.Key(), "error", err)
	}
}

func historyEntry(a *Attempt, at time.Time) domain.AttemptHistoryEntry {
	sb := a.Review.Scoreboard()
	entry := domain.AttemptHistoryEntry{
		Timestamp:       at,
		YearKey:         a.YearKey,
		Mode:            a.Mode,
		DurationSeconds: a.DurationSeconds,
		TimeUsedSeconds: a.TimeUsedSeconds(),
		MCScore:         sb.MCScore,
		MCTotal:         sb.MCTotal,
		LQScore:         sb.LongScore,
		LQTotal:         sb.LongTotal,
		Breakdown: domain.Breakdown{
			MC:   make([]domain.MCBreakdown, 0, len(a.Review.MCQuestions)),
			Long: make([]domain.LongBreakdown, 0, len(a.Review.LongQuestions)),
		},
	}
	for _, row := range a.Review.MCQuestions {
		entry.Breakdown.MC = append(entry.Breakdown.MC, domain.MCBreakdown{
			Question: row.Question.Key(),
			Correct:  row.IsCorrect,
		})
	}
	for _, row := range a.Review.LongQuestions {
		entry.Breakdown.Long = append(entry.Breakdown.Long, domain.LongBreakdown{
			Question: row.Question.Key(),
			Awarded:  row.Awarded,
			MaxMarks: row.MaxMarks,
		})
	}
	return entry
}

// Abandon discards the running attempt after confirmation. Nothing is persisted.
func (s *AttemptService) Abandon(ctx context.Context, confirm Confirmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.runningLocked()
	if err != nil {
		return err
	}
	if !confirmed(ctx, confirm, PromptAbandonAttempt) {
		return domain.ErrConfirmationDeclined
	}
	a.countdown.cancel()
	s.current = nil
	s.broadcastLocked(Event{Type: EventAbandoned, AttemptID: a.ID, RemainingSeconds: a.RemainingSeconds})
	return nil
}

// Current returns a copy of the attempt in the slot.
func (s *AttemptService) Current() (*Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current.snapshot(), true
}

// Close stops any live countdown and empties the slot without saving.
func (s *AttemptService) Close() {
	s.mu.Lock()
	a := s.current
	s.current = nil
	s.mu.Unlock()

	if a == nil || a.countdown == nil {
		return
	}
	a.countdown.cancel()
	<-a.countdown.done
}

func (s *AttemptService) runningLocked() (*Attempt, error) {
	if s.current == nil {
		return nil, domain.ErrNoActiveAttempt
	}
	if s.current.Finished {
		return nil, domain.ErrAttemptFinished
	}
	return s.current, nil
}

func (s *AttemptService) finishedLocked() (*Attempt, error) {
	if s.current == nil {
		return nil, domain.ErrNoActiveAttempt
	}
	if !s.current.Finished {
		return nil, domain.ErrAttemptNotFinished
	}
	return s.current, nil
}

// Subscribe returns a channel of attempt events. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *AttemptService) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *AttemptService) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest event so a slow subscriber never blocks the countdown
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
