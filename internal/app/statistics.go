package app

import (
	"context"
	"sync"

	"exam-paper-service/internal/domain"
)

// StatsRepository persists the statistics snapshot. Corrupt data loads as empty buckets;
// only backend failures are reported.
type StatsRepository interface {
	LoadStatistics(ctx context.Context) (domain.Statistics, error)
	SaveStatistics(ctx context.Context, stats domain.Statistics) error
}

// StatisticsRecorder aggregates question attempts by question, topic and year.
type StatisticsRecorder struct {
	repo StatsRepository
	mu   sync.Mutex
}

func NewStatisticsRecorder(repo StatsRepository) *StatisticsRecorder {
	return &StatisticsRecorder{repo: repo}
}

// RecordQuestionAttempt loads the snapshot, bumps the three buckets for q and saves it back.
// An unknown outcome counts as an attempt only. Nothing is written when the snapshot
// cannot be read.
func (r *StatisticsRecorder) RecordQuestionAttempt(ctx context.Context, q domain.Question, outcome domain.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, err := r.repo.LoadStatistics(ctx)
	if err != nil {
		return err
	}
	bump(stats.Questions, q.Key(), q.Label(), outcome)
	bump(stats.Topics, q.TopicKey(), q.TopicLabel(), outcome)
	yearKey := q.YearKey()
	bump(stats.Years, yearKey, yearKey, outcome)
	return r.repo.SaveStatistics(ctx, stats)
}

// Statistics returns the persisted snapshot.
func (r *StatisticsRecorder) Statistics(ctx context.Context) (domain.Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.LoadStatistics(ctx)
}

func bump(bucket map[string]domain.StatRecord, key, label string, outcome domain.Outcome) {
	rec := bucket[key]
	rec.Attempts++
	switch outcome {
	case domain.OutcomeCorrect:
		rec.Correct++
	case domain.OutcomeIncorrect:
		rec.Incorrect++
	}
	if rec.Label == "" {
		rec.Label = label
	}
	bucket[key] = rec
}
