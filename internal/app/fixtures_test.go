package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/infra/memory"
	"exam-paper-service/internal/paper"
	"exam-paper-service/internal/storage"
)

func ptr(v float64) *float64 { return &v }

func fixtureQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Type:          domain.TypeMultipleChoice,
			Source:        "DSE",
			Year:          "2023",
			TopicID:       "topic1",
			TopicName:     "Topic 1: Planet Earth",
			Question:      "Which gas is inert?",
			Options:       []domain.Option{{Option: "A", Content: "Argon"}, {Option: "B", Content: "Oxygen"}},
			CorrectOption: "A",
		},
		{
			ID:        "q2",
			Type:      "Structural",
			Source:    "DSE",
			Year:      "2023",
			TopicID:   "topic1",
			TopicName: "Topic 1: Planet Earth",
			Question:  "Explain fractional distillation of air.",
			MaxMarks:  ptr(4),
			StructuralAnswer: &domain.StructuralAnswer{
				Keywords:   []string{"boiling point", "liquefied"},
				FullAnswer: "Air is liquefied and separated by boiling point.",
			},
		},
		{
			ID:        "e1",
			Type:      "Structural",
			Source:    "DSE",
			Year:      "2022",
			TopicID:   "elective1",
			TopicName: "Elective 1: Industrial Chemistry",
			Question:  "Describe the Haber process.",
			MaxMarks:  ptr(6),
		},
		{
			ID:       "b1",
			Type:     "Structural",
			Source:   "CE",
			Year:     "2001",
			TopicID:  "topic2",
			Question: "Describe rusting.",
			MaxMarks: ptr(2),
		},
	}
}

// manualTicker only fires when a test sends on ch.
type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.once.Do(func() { close(m.stopped) }) }

type tickerRecorder struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (r *tickerRecorder) factory(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	r.mu.Lock()
	r.tickers = append(r.tickers, t)
	r.mu.Unlock()
	return t
}

func (r *tickerRecorder) last() *manualTicker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickers[len(r.tickers)-1]
}

// countingKV wraps the memory store, counts writes and can fail the next reads.
type countingKV struct {
	*memory.KVStore
	mu       sync.Mutex
	writes   int
	failGets int
}

var errReadFailed = errors.New("read failed")

func (c *countingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	if c.failGets > 0 {
		c.failGets--
		c.mu.Unlock()
		return nil, false, errReadFailed
	}
	c.mu.Unlock()
	return c.KVStore.Get(ctx, key)
}

func (c *countingKV) FailNextGets(n int) {
	c.mu.Lock()
	c.failGets = n
	c.mu.Unlock()
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.KVStore.Set(ctx, key, value)
}

func (c *countingKV) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type harness struct {
	service *AttemptService
	kv      *countingKV
	stats   *storage.StatsStore
	history *storage.HistoryStore
	tickers *tickerRecorder
}

func newHarness(t *testing.T, questions []domain.Question) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := &countingKV{KVStore: memory.NewKVStore()}
	h := &harness{
		kv:      kv,
		stats:   storage.NewStatsStore(kv, logger),
		history: storage.NewHistoryStore(kv, logger),
		tickers: &tickerRecorder{},
	}
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	h.service = NewAttemptService(
		paper.BuildIndex(questions),
		NewStatisticsRecorder(h.stats),
		h.history,
		WithClock(func() time.Time { return fixed }),
		WithTicker(h.tickers.factory),
		WithLogger(logger),
	)
	t.Cleanup(h.service.Close)
	return h
}

func (h *harness) current() *Attempt {
	h.service.mu.Lock()
	defer h.service.mu.Unlock()
	return h.service.current
}
