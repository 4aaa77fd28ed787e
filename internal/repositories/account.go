package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
)

// AccountRepository implements [models.Repository] for linked provider [models.Account] persistence.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_id, provider, external_id, access_token, refresh_token, expires_at, created_at, updated_at`

// Create inserts a new account with a generated ID
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	account.SetID(shared.GenerateID())

	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID(), account.UserID(), account.Provider(), account.ExternalID(),
		account.AccessToken(), account.RefreshToken(), account.ExpiresAt(),
		account.CreatedAt(), account.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// Get retrieves an account by ID
func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// Upsert inserts the account or, when (provider, external_id) already exists, moves it to the account's user
// and replaces its credentials. An empty refresh token or zero expiry keeps the stored value.
//
// The account ID is set to the stored row's ID.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.Account) error {
	if account.ID() == "" {
		account.SetID(shared.GenerateID())
	}

	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, external_id) DO UPDATE SET
			user_id = excluded.user_id,
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token != '' THEN excluded.refresh_token ELSE accounts.refresh_token END,
			expires_at = CASE WHEN excluded.expires_at != 0 THEN excluded.expires_at ELSE accounts.expires_at END,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	account.SetUpdatedAt(now)

	_, err := r.db.ExecContext(ctx, query,
		account.ID(), account.UserID(), account.Provider(), account.ExternalID(),
		account.AccessToken(), account.RefreshToken(), account.ExpiresAt(),
		account.CreatedAt(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	var id string
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE provider = ? AND external_id = ?`,
		account.Provider(), account.ExternalID(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to read upserted account: %w", err)
	}
	account.SetID(id)

	return nil
}

// FindUserID returns the owner of the account identified by provider and externalID.
func (r *AccountRepository) FindUserID(ctx context.Context, provider models.Provider, externalID string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM accounts WHERE provider = ? AND external_id = ?`,
		provider, externalID,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", shared.ErrAccountNotFound, provider, externalID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query account owner: %w", err)
	}
	return userID, nil
}

// ListByUser returns every account owned by userID, oldest first.
func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? ORDER BY created_at ASC, provider ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

// UpdateTokens writes a refreshed bundle back to the user's account for provider.
//
// An empty refresh token keeps the stored one.
func (r *AccountRepository) UpdateTokens(ctx context.Context, userID string, provider models.Provider, bundle models.TokenBundle) error {
	query := `
		UPDATE accounts
		SET access_token = ?,
			refresh_token = CASE WHEN ? != '' THEN ? ELSE refresh_token END,
			expires_at = ?,
			updated_at = ?
		WHERE user_id = ? AND provider = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		bundle.AccessToken, bundle.RefreshToken, bundle.RefreshToken, bundle.ExpiresAt/1000, time.Now(),
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to update account tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", shared.ErrAccountNotFound, userID, provider)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		id           string
		userID       string
		provider     string
		externalID   string
		accessToken  string
		refreshToken string
		expiresAt    int64
		createdAt    time.Time
		updatedAt    time.Time
	)

	if err := row.Scan(&id, &userID, &provider, &externalID, &accessToken, &refreshToken, &expiresAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	account := &models.Account{}
	account.SetID(id)
	account.SetUserID(userID)
	account.Restore(models.Provider(provider), externalID, accessToken, refreshToken, expiresAt)
	account.SetCreatedAt(createdAt)
	account.SetUpdatedAt(updatedAt)
	return account, nil
}
