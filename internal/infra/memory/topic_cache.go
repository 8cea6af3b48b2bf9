package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"exam-paper-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TopicLoader fetches a topic document from a backing source (GitHub, Postgres, ...).
type TopicLoader interface {
	LoadTopic(ctx context.Context, topic domain.Topic) (domain.TopicDocument, error)
}

// TopicCache caches topic documents with TTL to avoid repeated remote fetches.
type TopicCache struct {
	loader TopicLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedTopic
}

type cachedTopic struct {
	doc       domain.TopicDocument
	expiresAt time.Time
}

func NewTopicCache(loader TopicLoader, ttl time.Duration) *TopicCache {
	return &TopicCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedTopic),
	}
}

func (c *TopicCache) LoadTopic(ctx context.Context, topic domain.Topic) (domain.TopicDocument, error) {
	if doc, ok := c.lookup(topic.ID); ok {
		return doc, nil
	}

	result, err, _ := c.sf.Do(topic.ID, func() (interface{}, error) {
		if doc, ok := c.lookup(topic.ID); ok {
			return doc, nil
		}

		doc, err := c.loader.LoadTopic(ctx, topic)
		if err != nil {
			return domain.TopicDocument{}, err
		}

		c.mu.Lock()
		c.cache[topic.ID] = cachedTopic{
			doc:       doc,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return domain.TopicDocument{}, err
	}
	return result.(domain.TopicDocument), nil
}

// Invalidate drops the cached documents of topics so the next load refetches them.
func (c *TopicCache) Invalidate(_ context.Context, topics []domain.Topic) error {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.cache, t.ID)
	}
	c.mu.Unlock()
	return nil
}

func (c *TopicCache) lookup(topicID string) (domain.TopicDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[topicID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.TopicDocument{}, false
	}
	return entry.doc, true
}

func (c *TopicCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

// StaticTopicLoader serves topic documents from an in-memory map (tests/demos).
type StaticTopicLoader struct {
	docs map[string]domain.TopicDocument
}

func NewStaticTopicLoader(docs map[string]domain.TopicDocument) *StaticTopicLoader {
	return &StaticTopicLoader{docs: docs}
}

func (l *StaticTopicLoader) LoadTopic(_ context.Context, topic domain.Topic) (domain.TopicDocument, error) {
	if doc, ok := l.docs[topic.ID]; ok {
		return doc, nil
	}
	return domain.TopicDocument{}, domain.ErrTopicNotFound
}
