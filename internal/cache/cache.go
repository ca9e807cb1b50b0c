package cache

import (
	"context"
	"time"

	"rebill/internal/domain"
)

// SummaryCache holds rendered daily sales summaries keyed by date. Bill
// writes invalidate the affected day so cached reads never go stale past
// a single write.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.SalesSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.SalesSummary, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.SalesSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.SalesSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ string) error {
	return nil
}
