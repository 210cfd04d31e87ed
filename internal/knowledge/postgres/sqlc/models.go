package sqlc

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type QaRecord struct {
	ID        int64              `json:"id"`
	Position  int32              `json:"position"`
	Question  string             `json:"question"`
	Answer    string             `json:"answer"`
	Source    string             `json:"source"`
	LearnedAt string             `json:"learned_at"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
