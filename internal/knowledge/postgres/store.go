// Package postgres stores the knowledge records in a Postgres table.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/rota/internal/knowledge"
	"github.com/lewisedginton/rota/internal/knowledge/postgres/sqlc"
	pkgconfig "github.com/lewisedginton/rota/pkg/config"
	"github.com/lewisedginton/rota/pkg/logger"
)

// Connect opens a pool from cfg and checks it answers.
func Connect(ctx context.Context, cfg pkgconfig.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.GetConnectionConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Store is a knowledge.RecordStore over the qa_records table. Record order is kept
// in the position column.
type Store struct {
	pool    *pgxpool.Pool
	queries *sqlc.Queries
	logger  logger.Logger
}

var _ knowledge.RecordStore = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, log logger.Logger) *Store {
	return &Store{
		pool:    pool,
		queries: sqlc.New(pool),
		logger:  log,
	}
}

func (s *Store) Load(ctx context.Context) ([]knowledge.QARecord, error) {
	rows, err := s.queries.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return fromRows(rows), nil
}

// Save replaces the table contents with records in one transaction.
func (s *Store) Save(ctx context.Context, records []knowledge.QARecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	q := s.queries.WithTx(tx)
	if err := q.DeleteAllRecords(ctx); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	for _, params := range toParams(records) {
		if err := q.InsertRecord(ctx, params); err != nil {
			s.logger.Error("failed to insert record",
				logger.ErrorField(err),
				logger.StringField("question", params.Question))
			return fmt.Errorf("insert record: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// Ping satisfies health.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func fromRows(rows []sqlc.QaRecord) []knowledge.QARecord {
	out := make([]knowledge.QARecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, knowledge.QARecord{
			Question: r.Question,
			Answer:   r.Answer,
			Source:   r.Source,
			Date:     r.LearnedAt,
		})
	}
	return out
}

func toParams(records []knowledge.QARecord) []sqlc.InsertRecordParams {
	out := make([]sqlc.InsertRecordParams, 0, len(records))
	for i, r := range records {
		out = append(out, sqlc.InsertRecordParams{
			Position:  int32(i),
			Question:  r.Question,
			Answer:    r.Answer,
			Source:    r.Source,
			LearnedAt: r.Date,
		})
	}
	return out
}
