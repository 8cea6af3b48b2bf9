// Package questionbank loads the topic catalogue into an immutable question snapshot.
package questionbank

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/paper"
)

// TopicLoader fetches one topic document.
type TopicLoader interface {
	LoadTopic(ctx context.Context, topic domain.Topic) (domain.TopicDocument, error)
}

// cacheInvalidator is implemented by caching loaders.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, topics []domain.Topic) error
}

// Bank holds the current snapshot and its year index. Readers never see a partially
// loaded snapshot.
type Bank struct {
	loader TopicLoader
	topics []domain.Topic
	logger *slog.Logger

	mu        sync.RWMutex
	questions []domain.Question
	index     paper.Index
	yearKeys  []string
	loaded    []domain.Topic
}

func New(loader TopicLoader, topics []domain.Topic, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bank{
		loader: loader,
		topics: topics,
		logger: logger,
		index:  paper.Index{},
	}
}

// Load fetches every topic in catalogue order. Topics that fail to load or lack a
// questions array are skipped with a warning. When no topic loads at all the current
// snapshot is kept and ErrTopicsUnavailable is returned. It returns the number of
// questions loaded.
func (b *Bank) Load(ctx context.Context) (int, error) {
	var (
		questions []domain.Question
		loaded    []domain.Topic
	)
	for _, topic := range b.topics {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		doc, err := b.loader.LoadTopic(ctx, topic)
		if err != nil {
			b.logger.Warn("skipping topic", "topic", topic.ID, "file", topic.File, "error", err)
			continue
		}
		if doc.Questions == nil {
			b.logger.Warn("skipping topic without questions array", "topic", topic.ID, "file", topic.File)
			continue
		}
		for _, q := range doc.Questions {
			q.TopicID = topic.ID
			q.TopicName = topic.Name
			questions = append(questions, q)
		}
		loaded = append(loaded, topic)
		b.logger.Debug("topic loaded", "topic", topic.ID, "questions", len(doc.Questions))
	}

	if len(loaded) == 0 && len(b.topics) > 0 {
		return 0, domain.ErrTopicsUnavailable
	}

	b.Replace(questions)
	b.mu.Lock()
	b.loaded = loaded
	b.mu.Unlock()
	b.logger.Info("question bank loaded", "topics", len(loaded), "questions", len(questions))
	return len(questions), nil
}

// Reload drops cached topic documents, when the loader caches them, and loads the
// catalogue again.
func (b *Bank) Reload(ctx context.Context) (int, error) {
	if inv, ok := b.loader.(cacheInvalidator); ok {
		if err := inv.Invalidate(ctx, b.topics); err != nil {
			return 0, fmt.Errorf("invalidate topic cache: %w", err)
		}
	}
	return b.Load(ctx)
}

// Replace swaps in a new snapshot and rebuilds the index.
func (b *Bank) Replace(questions []domain.Question) {
	idx := paper.BuildIndex(questions)
	keys := paper.SortedKeys(idx)

	b.mu.Lock()
	b.questions = questions
	b.index = idx
	b.yearKeys = keys
	b.mu.Unlock()
}

// Questions returns the snapshot. Callers must not modify it.
func (b *Bank) Questions() []domain.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.questions
}

func (b *Bank) YearGroup(key string) (paper.YearGroup, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.YearGroup(key)
}

// YearKeys lists the year groups in display order.
func (b *Bank) YearKeys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.yearKeys...)
}

// Topics lists the catalogue; LoadedTopics only the ones that loaded.
func (b *Bank) Topics() []domain.Topic {
	return append([]domain.Topic(nil), b.topics...)
}

func (b *Bank) LoadedTopics() []domain.Topic {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Topic(nil), b.loaded...)
}

func (b *Bank) Topic(id string) (domain.Topic, bool) {
	for _, t := range b.topics {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Topic{}, false
}

// TopicSets returns the practice lists of one catalogue topic.
func (b *Bank) TopicSets(topicID string) (paper.TopicSet, error) {
	if _, ok := b.Topic(topicID); !ok {
		return paper.TopicSet{}, domain.ErrTopicNotFound
	}
	return paper.TopicSets(b.Questions(), topicID), nil
}

// YearSet returns a year's questions for practice. Only DSE, AL and CE sittings are offered.
func (b *Bank) YearSet(key string) ([]domain.Question, error) {
	group, ok := b.YearGroup(key)
	if !ok || !paper.PracticeSources[group.Source] {
		return nil, domain.ErrYearNotFound
	}
	return paper.YearSet(group), nil
}
