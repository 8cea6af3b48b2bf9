package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/infra/postgres/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// TopicRecord is one row of the topics table.
type TopicRecord struct {
	bun.BaseModel `bun:"table:topics"`

	ID        string          `bun:"id,pk"`
	Name      string          `bun:"name,notnull"`
	File      string          `bun:"file,notnull"`
	Data      json.RawMessage `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
}

// OpenBun opens a bun handle over pgdriver for migrations and imports.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies all pending migrations and returns the applied group (empty when up to date).
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("migrator init: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// TopicStore writes topic documents so TopicLoader can serve them.
type TopicStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewTopicStore(db *bun.DB) *TopicStore {
	return &TopicStore{db: db, now: time.Now}
}

// Upsert inserts or replaces one topic document.
func (s *TopicStore) Upsert(ctx context.Context, topic domain.Topic, doc domain.TopicDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal topic %s: %w", topic.ID, err)
	}
	rec := &TopicRecord{
		ID:        topic.ID,
		Name:      topic.Name,
		File:      topic.File,
		Data:      data,
		UpdatedAt: s.now().UTC(),
	}
	_, err = s.db.NewInsert().
		Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("file = EXCLUDED.file").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert topic %s: %w", topic.ID, err)
	}
	return nil
}

// Topics lists stored topics by id.
func (s *TopicStore) Topics(ctx context.Context) ([]domain.Topic, error) {
	var recs []TopicRecord
	if err := s.db.NewSelect().Model(&recs).Column("id", "name", "file").Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	topics := make([]domain.Topic, 0, len(recs))
	for _, r := range recs {
		topics = append(topics, domain.Topic{ID: r.ID, Name: r.Name, File: r.File})
	}
	return topics, nil
}
