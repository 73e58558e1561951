package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.Specialty,
		&a.LicenseNumber,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (s *PgStore) CreateAccount(ctx context.Context, a Account) (*Account, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, role, specialty, license_number, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, now(), now())
		RETURNING id, name, email, password_hash, role, specialty, license_number, created_at, updated_at
	`, a.ID, a.Name, a.Email, a.PasswordHash, a.Role, a.Specialty, a.LicenseNumber)

	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, specialty, license_number, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (s *PgStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, specialty, license_number, created_at, updated_at
		FROM accounts
		WHERE email = lower($1)
	`, email)
	return scanAccount(row)
}

func (s *PgStore) ListProfessionals(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, password_hash, role, specialty, license_number, created_at, updated_at
		FROM accounts
		WHERE role = 'professional'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}
