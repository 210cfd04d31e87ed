package sqlc

import (
	"context"
)

type Querier interface {
	CountRecords(ctx context.Context) (int64, error)
	DeleteAllRecords(ctx context.Context) error
	InsertRecord(ctx context.Context, arg InsertRecordParams) error
	ListRecords(ctx context.Context) ([]QaRecord, error)
}

var _ Querier = (*Queries)(nil)
