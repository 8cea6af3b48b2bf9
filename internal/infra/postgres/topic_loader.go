package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"exam-paper-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TopicLoader loads topic JSONB from Postgres.
type TopicLoader struct {
	pool *pgxpool.Pool
}

func NewTopicLoader(pool *pgxpool.Pool) *TopicLoader {
	return &TopicLoader{pool: pool}
}

func (l *TopicLoader) LoadTopic(ctx context.Context, topic domain.Topic) (domain.TopicDocument, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM topics WHERE id=$1`, topic.ID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TopicDocument{}, fmt.Errorf("load topic %s: %w", topic.ID, domain.ErrTopicNotFound)
	}
	if err != nil {
		return domain.TopicDocument{}, fmt.Errorf("load topic %s: %w", topic.ID, err)
	}
	var doc domain.TopicDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.TopicDocument{}, fmt.Errorf("unmarshal topic %s: %w", topic.ID, err)
	}
	return doc, nil
}
