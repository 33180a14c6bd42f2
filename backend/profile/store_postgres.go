package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/pgdb"
)

const profileColumns = `identity, handle, gender, age, about, target_gender, age_min, age_max, photo, created_at, updated_at`

// PostgresStore keeps profiles in the profiles table. ListAll follows the
// insertion sequence.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	var gender, target string
	err := row.Scan(&p.Identity, &p.Handle, &gender, &p.Age, &p.About, &target,
		&p.AgeMin, &p.AgeMax, &p.Photo, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.Gender, p.TargetGender = Gender(gender), TargetGender(target)
	return p, nil
}

func (s *PostgresStore) GetByIdentity(ctx context.Context, identity string) (Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE identity = $1`, identity))
}

func (s *PostgresStore) GetByHandle(ctx context.Context, handle string) (Profile, error) {
	key := NormalizeHandle(handle)
	if key == "" {
		return Profile{}, ErrNotFound
	}
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE handle_key = $1`, key))
}

// Upsert writes p in one transaction. A handle held by another identity is
// cleared from that identity first.
func (s *PostgresStore) Upsert(ctx context.Context, p Profile) error {
	key := NormalizeHandle(p.Handle)
	return pgdb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if key != "" {
			if _, err := tx.ExecContext(ctx, `
				UPDATE profiles SET handle = '', handle_key = NULL, updated_at = now()
				WHERE handle_key = $1 AND identity <> $2
			`, key, p.Identity); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (identity, handle, handle_key, gender, age, about,
			                      target_gender, age_min, age_max, photo)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (identity) DO UPDATE SET
				handle        = EXCLUDED.handle,
				handle_key    = EXCLUDED.handle_key,
				gender        = EXCLUDED.gender,
				age           = EXCLUDED.age,
				about         = EXCLUDED.about,
				target_gender = EXCLUDED.target_gender,
				age_min       = EXCLUDED.age_min,
				age_max       = EXCLUDED.age_max,
				photo         = EXCLUDED.photo,
				updated_at    = now()
		`, p.Identity, p.Handle, key, string(p.Gender), p.Age, p.About,
			string(p.TargetGender), p.AgeMin, p.AgeMax, p.Photo)
		return err
	})
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetMany(ctx context.Context, identities []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(identities))
	if len(identities) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE identity = ANY($1)`, pq.Array(identities))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.Identity] = p
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
