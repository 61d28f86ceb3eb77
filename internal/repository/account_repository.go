package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SinaHo/fyra-signin-backend/internal/model"
)

// AccountRepository stores credentials for the self-hosted identity provider.
type AccountRepository interface {
	// Create returns ErrEmailTaken when the email is already registered.
	// An empty passwordHash creates a passwordless (email link) account.
	Create(ctx context.Context, email, passwordHash, displayName string, verified bool) (*model.Account, error)
	// GetByEmail returns ErrNotFound when no account exists.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdateDisplayName(ctx context.Context, uid, name string) error
}

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

type accountRow struct {
	UID           string         `db:"uid"`
	Email         string         `db:"email"`
	PasswordHash  sql.NullString `db:"password_hash"`
	DisplayName   string         `db:"display_name"`
	EmailVerified bool           `db:"email_verified"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (row accountRow) toModel() *model.Account {
	return &model.Account{
		UID:           row.UID,
		Email:         row.Email,
		PasswordHash:  row.PasswordHash.String,
		DisplayName:   row.DisplayName,
		EmailVerified: row.EmailVerified,
		CreatedAt:     row.CreatedAt,
	}
}

func (r *accountRepository) Create(ctx context.Context, email, passwordHash, displayName string, verified bool) (*model.Account, error) {
	id := uuid.New()
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO accounts (uid, email, password_hash, display_name, email_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uid, email, password_hash, display_name, email_verified, created_at
	`
	hash := sql.NullString{String: passwordHash, Valid: passwordHash != ""}

	var row accountRow
	err := r.db.GetContext(ctx, &row, query, id, email, hash, displayName, verified, createdAt)
	if err != nil {
		if _, ok := uniqueViolationOn(err); ok {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("error inserting account: %w", err)
	}
	return row.toModel(), nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `
		SELECT uid, email, password_hash, display_name, email_verified, created_at
		FROM accounts
		WHERE email = $1
	`
	var row accountRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error selecting account by email: %w", err)
	}
	return row.toModel(), nil
}

func (r *accountRepository) UpdateDisplayName(ctx context.Context, uid, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET display_name = $1 WHERE uid = $2`, name, uid)
	if err != nil {
		return fmt.Errorf("error updating display name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
