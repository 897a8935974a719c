package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"finnews/internal/domain"
	"finnews/internal/ports"
)

// Tracker samples the market quote source and persists each observation.
type Tracker struct {
	quotes ports.QuoteSource
	store  ports.PriceStore
	logger *slog.Logger
}

// NewTracker constructs the price-tracking component.
func NewTracker(quotes ports.QuoteSource, store ports.PriceStore, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{quotes: quotes, store: store, logger: log}
}

// Track fetches one price point and stores it. A storage failure is logged
// but does not discard the observation.
func (t *Tracker) Track(ctx context.Context) (domain.PricePoint, error) {
	if t.quotes == nil {
		return domain.PricePoint{}, nil
	}

	point, err := t.quotes.Latest(ctx)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("fetch quote: %w", err)
	}

	t.logger.Info("price observed", "coin", point.Coin, "currency", point.Currency, "price", point.Price)

	if t.store != nil {
		if err := t.store.SavePrice(ctx, point); err != nil {
			t.logger.Warn("price store failed", "coin", point.Coin, "error", err)
		}
	}

	return point, nil
}
