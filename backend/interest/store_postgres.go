package interest

import (
	"context"
	"database/sql"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/pgdb"
)

// PostgresEdgeStore keeps edges in interest_edges. InsertAndCheckReverse takes
// a transaction-scoped advisory lock on the unordered pair, so processes
// sharing the database agree on which insert completed the match.
type PostgresEdgeStore struct {
	db *sql.DB
}

func NewPostgresEdgeStore(db *sql.DB) *PostgresEdgeStore {
	return &PostgresEdgeStore{db: db}
}

func (s *PostgresEdgeStore) HasEdge(ctx context.Context, from, to string) (bool, error) {
	return hasEdge(ctx, s.db, from, to)
}

func (s *PostgresEdgeStore) InsertEdge(ctx context.Context, from, to string) (bool, error) {
	return insertEdge(ctx, s.db, from, to)
}

func (s *PostgresEdgeStore) InsertAndCheckReverse(ctx context.Context, from, to string) (inserted, reverse bool, err error) {
	err = pgdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		a, b := from, to
		if a > b {
			a, b = b, a
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, a+"|"+b); err != nil {
			return err
		}
		var err error
		if inserted, err = insertEdge(ctx, tx, from, to); err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		reverse, err = hasEdge(ctx, tx, to, from)
		return err
	})
	return inserted, reverse, err
}

func (s *PostgresEdgeStore) Close() error { return s.db.Close() }

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func hasEdge(ctx context.Context, q execQuerier, from, to string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM interest_edges WHERE from_identity = $1 AND to_identity = $2
		)
	`, from, to).Scan(&exists)
	return exists, err
}

func insertEdge(ctx context.Context, q execQuerier, from, to string) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO interest_edges (from_identity, to_identity)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
