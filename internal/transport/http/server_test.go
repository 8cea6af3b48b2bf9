package http

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"exam-paper-service/internal/app"
	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/infra/memory"
	"exam-paper-service/internal/questionbank"
	"exam-paper-service/internal/storage"
)

type testServer struct {
	*httptest.Server
	attempts *app.AttemptService
	history  *storage.HistoryStore
	source   *swapLoader
}

// swapLoader serves topic documents that a test can replace between loads.
type swapLoader struct {
	mu   sync.Mutex
	docs map[string]domain.TopicDocument
}

func (l *swapLoader) LoadTopic(_ context.Context, topic domain.Topic) (domain.TopicDocument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[topic.ID]
	if !ok {
		return domain.TopicDocument{}, domain.ErrTopicNotFound
	}
	return doc, nil
}

func (l *swapLoader) set(docs map[string]domain.TopicDocument) {
	l.mu.Lock()
	l.docs = docs
	l.mu.Unlock()
}

type idleTicker struct{ ch chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.ch }
func (idleTicker) Stop()                 {}

type prefixResolver struct{}

func (prefixResolver) ResolveImageURL(_ context.Context, path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return "https://img.test/" + path
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := memory.NewKVStore()
	statsStore := storage.NewStatsStore(kv, logger)
	historyStore := storage.NewHistoryStore(kv, logger)

	source := &swapLoader{docs: sampleTopics()}
	bank := questionbank.New(memory.NewTopicCache(source, time.Hour), []domain.Topic{
		{ID: "topic1", Name: "Topic 1", File: "Topic1.json"},
		{ID: "elective1", Name: "Elective 1", File: "Elective1.json"},
	}, logger)
	if _, err := bank.Load(context.Background()); err != nil {
		t.Fatalf("load bank: %v", err)
	}

	stats := app.NewStatisticsRecorder(statsStore)
	attempts := app.NewAttemptService(bank, stats, historyStore,
		app.WithTicker(func(time.Duration) app.Ticker { return idleTicker{ch: make(chan time.Time)} }),
		app.WithLogger(logger),
	)
	t.Cleanup(attempts.Close)
	practice := app.NewPracticeService(stats, logger)

	api := NewAPI(bank, practice, stats, historyStore, prefixResolver{}, logger)
	server := httptest.NewServer(NewRouter(api, NewWSHandler(attempts, logger), logger))
	t.Cleanup(server.Close)
	return &testServer{Server: server, attempts: attempts, history: historyStore, source: source}
}

func sampleTopics() map[string]domain.TopicDocument {
	four := 4.0
	return map[string]domain.TopicDocument{
		"topic1": {Questions: []domain.Question{
			{
				ID: "q1", Type: domain.TypeMultipleChoice, Source: "DSE", Year: "2023",
				Question:      "Which is a noble gas?",
				Image:         "images/q1.png",
				Options:       []domain.Option{{Option: "A", Content: "Argon"}, {Option: "B", Content: "Oxygen"}},
				CorrectOption: "A",
			},
			{
				ID: "q2", Type: "Structural", Source: "DSE", Year: "2023",
				Question: "Explain.",
				MaxMarks: &four,
				StructuralAnswer: &domain.StructuralAnswer{
					Keywords:   []string{"electron"},
					FullAnswer: "Electrons are transferred.",
				},
			},
		}},
		"elective1": {Questions: []domain.Question{
			{ID: "e1", Type: "Structural", Source: "CE", Year: "2001", Question: "Haber?"},
		}},
	}
}
