package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"finnews/internal/domain"
	"finnews/internal/ports"
)

// PostgresStore persists accepted articles and price observations.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ArticleStore = (*PostgresStore)(nil)
var _ ports.PriceStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveArticle inserts one accepted record. A URL that is already stored is
// left untouched, which keeps re-runs duplicate-tolerant.
func (s *PostgresStore) SaveArticle(ctx context.Context, record domain.ArticleRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if s.db == nil {
		return nil
	}

	query, args, err := s.builder.
		Insert("finance_news").
		Columns("title", "url", "source", "summary", "run_id", "created_at").
		Values(record.Title, record.URL, record.Source, record.Summary, record.RunID, record.CreatedAt).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build article insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}

	return nil
}

// SavePrice appends one spot-price observation.
func (s *PostgresStore) SavePrice(ctx context.Context, point domain.PricePoint) error {
	if s.db == nil {
		return nil
	}

	query, args, err := s.builder.
		Insert("btc_prices").
		Columns("coin", "currency", "price", "fetched_at").
		Values(point.Coin, point.Currency, point.Price, point.FetchedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build price insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert price: %w", err)
	}

	return nil
}
