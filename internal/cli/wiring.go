package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"exam-paper-service/internal/config"
	githubloader "exam-paper-service/internal/infra/github"
	"exam-paper-service/internal/infra/memory"
	pgloader "exam-paper-service/internal/infra/postgres"
	infraredis "exam-paper-service/internal/infra/redis"
	"exam-paper-service/internal/infra/sqlite"
	"exam-paper-service/internal/questionbank"
	"exam-paper-service/internal/storage"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// deps holds the wired infrastructure; close releases it in reverse order.
type deps struct {
	kv      storage.KV
	bank    *questionbank.Bank
	images  *githubloader.Loader
	closers []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// openStorage wires only the statistics/history backend.
func openStorage(cfg config.Config, redisClient *redis.Client) (storage.KV, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		return infraredis.NewKVStore(redisClient, cfg.Redis.Prefix), func() {}, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return memory.NewKVStore(), func() {}, nil
	}
}

func buildDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) (*deps, error) {
	d := &deps{}
	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
	}

	kv, closeKV, err := openStorage(cfg, redisClient)
	if err != nil {
		d.close()
		return nil, err
	}
	d.kv = kv
	d.closers = append(d.closers, closeKV)

	var loader questionbank.TopicLoader
	switch cfg.Questions.Source {
	case config.SourcePostgres:
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		loader = pgloader.NewTopicLoader(pool)
	default:
		gh := newGitHubLoader(cfg, logger)
		d.images = gh
		loader = gh
	}

	ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		loader = infraredis.NewTopicCache(redisClient, loader, ttl)
	} else {
		loader = memory.NewTopicCache(loader, ttl)
	}

	d.bank = questionbank.New(loader, cfg.Topics, logger)
	return d, nil
}

func newGitHubLoader(cfg config.Config, logger *slog.Logger) *githubloader.Loader {
	return githubloader.New(githubloader.Repo{
		Owner:  cfg.Questions.Owner,
		Name:   cfg.Questions.Repo,
		Branch: cfg.Questions.Branch,
	}, cfg.Questions.APIBase, cfg.Questions.RawBase, logger)
}
