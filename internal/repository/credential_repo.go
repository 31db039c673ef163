package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"star-auth/internal/domain"
)

// ErrDuplicateEmail indica que el email ya esta registrado. La restriccion
// unique del store es quien decide en registros concurrentes.
var ErrDuplicateEmail = errors.New("email already registered")

const pgUniqueViolation = "23505"

// CredentialRepository define el contrato de persistencia para credenciales.
type CredentialRepository interface {
	Create(ctx context.Context, q Querier, cred domain.Credential) error
	GetByEmail(ctx context.Context, q Querier, email string) (domain.Credential, error)
	GetByID(ctx context.Context, q Querier, userID string) (domain.Credential, error)
	SetVerified(ctx context.Context, q Querier, userID string, at time.Time) error
	Delete(ctx context.Context, q Querier, userID string) error
}

// PgCredentialRepository implementa CredentialRepository sobre pgx.
type PgCredentialRepository struct{}

func NewPgCredentialRepository() *PgCredentialRepository {
	return &PgCredentialRepository{}
}

func (r *PgCredentialRepository) Create(ctx context.Context, q Querier, cred domain.Credential) error {
	const query = `
		INSERT INTO user_credentials (user_id, email, password_hash, acc_type, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	_, err := q.Exec(ctx, query,
		cred.UserID,
		cred.Email,
		cred.PasswordHash,
		cred.AccountType,
		cred.IsVerified,
		cred.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PgCredentialRepository) GetByEmail(ctx context.Context, q Querier, email string) (domain.Credential, error) {
	const query = `
		SELECT user_id, email, password_hash, acc_type, is_verified, created_at, updated_at
		FROM user_credentials
		WHERE email = $1
	`
	return r.scanOne(q.QueryRow(ctx, query, email))
}

func (r *PgCredentialRepository) GetByID(ctx context.Context, q Querier, userID string) (domain.Credential, error) {
	const query = `
		SELECT user_id, email, password_hash, acc_type, is_verified, created_at, updated_at
		FROM user_credentials
		WHERE user_id = $1
	`
	return r.scanOne(q.QueryRow(ctx, query, userID))
}

func (r *PgCredentialRepository) SetVerified(ctx context.Context, q Querier, userID string, at time.Time) error {
	const query = `
		UPDATE user_credentials
		SET is_verified = TRUE, updated_at = $2
		WHERE user_id = $1
	`
	tag, err := q.Exec(ctx, query, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCredentialRepository) Delete(ctx context.Context, q Querier, userID string) error {
	const query = `DELETE FROM user_credentials WHERE user_id = $1`
	tag, err := q.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCredentialRepository) scanOne(row pgx.Row) (domain.Credential, error) {
	var c domain.Credential
	err := row.Scan(
		&c.UserID,
		&c.Email,
		&c.PasswordHash,
		&c.AccountType,
		&c.IsVerified,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Credential{}, err
	}
	return c, nil
}
