package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Credential is the stored admin login. Username matching is exact.
type Credential struct {
	ID           string
	Username     string
	PasswordHash string
}

// Credentials is the login request payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrValidation
	}
	return nil
}

type CredentialsRepo struct {
	db *pgxpool.Pool
}

func NewCredentialsRepo(db *pgxpool.Pool) *CredentialsRepo {
	return &CredentialsRepo{
		db: db,
	}
}

func (r *CredentialsRepo) GetByUsername(ctx context.Context, username string) (*Credential, error) {
	var c Credential
	err := r.db.QueryRow(
		ctx,
		`SELECT id::text, username, password_hash FROM credential WHERE username = $1;`,
		username,
	).Scan(&c.ID, &c.Username, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("select credential: %w", err)
	}
	return &c, nil
}

// Upsert creates the credential or replaces the password hash of an existing
// username. The id of an existing credential is kept, so issued sessions keep
// pointing at the same subject.
func (r *CredentialsRepo) Upsert(ctx context.Context, username, passwordHash string) (*Credential, error) {
	if username == "" || passwordHash == "" {
		return nil, errors.New("username or password hash empty")
	}

	c := Credential{
		Username:     username,
		PasswordHash: passwordHash,
	}
	err := r.db.QueryRow(
		ctx,
		`INSERT INTO credential (id, username, password_hash) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()
		RETURNING id::text;`,
		uuid.NewString(), username, passwordHash,
	).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("upsert credential: %w", err)
	}
	return &c, nil
}
