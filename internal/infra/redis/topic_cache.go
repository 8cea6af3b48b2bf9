package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"exam-paper-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// TopicLoader fetches a topic document from a backing source (GitHub, Postgres, ...).
type TopicLoader interface {
	LoadTopic(ctx context.Context, topic domain.Topic) (domain.TopicDocument, error)
}

// TopicCache keeps serialized topic documents in Redis and falls back to a loader on a miss.
// Documents are stored as: SET topic:{topicID}:doc {json} EX ttl
type TopicCache struct {
	client *redis.Client
	loader TopicLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewTopicCache(client *redis.Client, loader TopicLoader, ttl time.Duration) *TopicCache {
	return &TopicCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *TopicCache) LoadTopic(ctx context.Context, topic domain.Topic) (domain.TopicDocument, error) {
	key := c.docKey(topic.ID)
	if doc, ok := c.cached(ctx, key); ok {
		return doc, nil
	}

	result, err, _ := c.sf.Do(topic.ID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if doc, ok := c.cached(ctx, key); ok {
			return doc, nil
		}

		doc, err := c.loader.LoadTopic(ctx, topic)
		if err != nil {
			return domain.TopicDocument{}, err
		}

		raw, err := json.Marshal(doc)
		if err != nil {
			return doc, nil
		}
		// best-effort fill; a failed write only costs another load
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		return doc, nil
	})
	if err != nil {
		return domain.TopicDocument{}, err
	}
	return result.(domain.TopicDocument), nil
}

func (c *TopicCache) cached(ctx context.Context, key string) (domain.TopicDocument, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.TopicDocument{}, false
	}
	var doc domain.TopicDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		// corrupt entry: drop it so the loader refills it
		_ = c.client.Del(ctx, key).Err()
		return domain.TopicDocument{}, false
	}
	return doc, true
}

// Invalidate removes cached documents for the given topics.
func (c *TopicCache) Invalidate(ctx context.Context, topics []domain.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	keys := make([]string, 0, len(topics))
	for _, t := range topics {
		keys = append(keys, c.docKey(t.ID))
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *TopicCache) docKey(topicID string) string {
	return "topic:" + topicID + ":doc"
}

func (c *TopicCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
