package review

import (
	"context"
	"database/sql"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (subject, author, body, created_at)
		VALUES ($1, $2, $3, $4)
	`, e.Subject, e.Author, e.Text, e.CreatedAt)
	return err
}

// List returns entries for handle ordered by insertion.
func (s *PostgresStore) List(ctx context.Context, handle string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, author, body, created_at
		FROM reviews
		WHERE subject = $1
		ORDER BY id
	`, handle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Subject, &e.Author, &e.Text, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
