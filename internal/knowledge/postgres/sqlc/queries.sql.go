package sqlc

import (
	"context"
)

const countRecords = `-- name: CountRecords :one
SELECT COUNT(*) FROM qa_records
`

func (q *Queries) CountRecords(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countRecords)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteAllRecords = `-- name: DeleteAllRecords :exec
DELETE FROM qa_records
`

func (q *Queries) DeleteAllRecords(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteAllRecords)
	return err
}

const insertRecord = `-- name: InsertRecord :exec
INSERT INTO qa_records (position, question, answer, source, learned_at)
VALUES ($1, $2, $3, $4, $5)
`

type InsertRecordParams struct {
	Position  int32  `json:"position"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Source    string `json:"source"`
	LearnedAt string `json:"learned_at"`
}

func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) error {
	_, err := q.db.Exec(ctx, insertRecord,
		arg.Position,
		arg.Question,
		arg.Answer,
		arg.Source,
		arg.LearnedAt,
	)
	return err
}

const listRecords = `-- name: ListRecords :many
SELECT id, position, question, answer, source, learned_at, created_at FROM qa_records
ORDER BY position ASC, id ASC
`

func (q *Queries) ListRecords(ctx context.Context) ([]QaRecord, error) {
	rows, err := q.db.Query(ctx, listRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QaRecord
	for rows.Next() {
		var i QaRecord
		if err := rows.Scan(
			&i.ID,
			&i.Position,
			&i.Question,
			&i.Answer,
			&i.Source,
			&i.LearnedAt,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
