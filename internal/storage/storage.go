// Package storage persists statistics and attempt history as JSON blobs in a key-value backend.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"exam-paper-service/internal/domain"
)

const (
	// StatsKey holds the serialized statistics buckets.
	StatsKey = "exam_paper_stats"
	// HistoryKey holds the serialized attempt history list.
	HistoryKey = "exam_paper_attempt_history"
)

// KV is the durable key-value backend (memory, Redis, SQLite).
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// StatsStore reads and writes the whole statistics snapshot.
type StatsStore struct {
	kv     KV
	logger *slog.Logger
}

func NewStatsStore(kv KV, logger *slog.Logger) *StatsStore {
	return &StatsStore{kv: kv, logger: logger}
}

// LoadStatistics returns the saved snapshot. A corrupt blob is logged and replaced by
// empty buckets; a backend read error is returned so callers never overwrite data they
// could not see.
func (s *StatsStore) LoadStatistics(ctx context.Context) (domain.Statistics, error) {
	raw, ok, err := s.kv.Get(ctx, StatsKey)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("read statistics: %w", err)
	}
	if !ok || len(raw) == 0 {
		return domain.NewStatistics(), nil
	}
	var stats domain.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("statistics unreadable, using empty statistics",
			"error", fmt.Errorf("%w: %v", domain.ErrStorageReadCorrupt, err),
		)
		return domain.NewStatistics(), nil
	}
	stats.Normalize()
	return stats, nil
}

func (s *StatsStore) SaveStatistics(ctx context.Context, stats domain.Statistics) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	if err := s.kv.Set(ctx, StatsKey, raw); err != nil {
		return fmt.Errorf("save statistics: %w", err)
	}
	return nil
}

// HistoryStore keeps the append-only attempt log.
type HistoryStore struct {
	kv     KV
	logger *slog.Logger
}

func NewHistoryStore(kv KV, logger *slog.Logger) *HistoryStore {
	return &HistoryStore{kv: kv, logger: logger}
}

// LoadHistory returns the saved entries. A corrupt log reads as empty; a backend read
// error is returned.
func (h *HistoryStore) LoadHistory(ctx context.Context) ([]domain.AttemptHistoryEntry, error) {
	raw, ok, err := h.kv.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("read attempt history: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []domain.AttemptHistoryEntry{}, nil
	}
	var entries []domain.AttemptHistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		h.logger.Warn("attempt history unreadable",
			"error", fmt.Errorf("%w: %v", domain.ErrStorageReadCorrupt, err),
		)
		return []domain.AttemptHistoryEntry{}, nil
	}
	if entries == nil {
		entries = []domain.AttemptHistoryEntry{}
	}
	return entries, nil
}

// AppendHistory rewrites the log with entry appended. A corrupt log is replaced; a log
// that cannot be read is left untouched.
func (h *HistoryStore) AppendHistory(ctx context.Context, entry domain.AttemptHistoryEntry) error {
	entries, err := h.LoadHistory(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(append(entries, entry))
	if err != nil {
		return fmt.Errorf("marshal attempt history: %w", err)
	}
	if err := h.kv.Set(ctx, HistoryKey, raw); err != nil {
		return fmt.Errorf("save attempt history: %w", err)
	}
	return nil
}
