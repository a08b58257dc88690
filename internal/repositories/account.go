package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/shared"
)

// AccountRepository implements models.Repository[*models.Account].
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account into the database with generated ID and sequence
func (r *AccountRepository) Create(account *models.Account) error {
	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	account.SetID(id)
	account.SetSequence(sequence)

	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO accounts (id, sequence, name, credential, pointer_root, cloud_root, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		account.Name,
		account.Credential,
		account.PointerRoot,
		account.CloudRoot,
		account.CreatedAt(),
		account.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// Get retrieves an account by ID, excluding soft-deleted accounts
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	query := `
		SELECT id, sequence, name, credential, pointer_root, cloud_root, created_at, updated_at, deleted_at
		FROM accounts
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanAccount(r.db.QueryRow(query, id))
}

// Update modifies an existing account in the database
func (r *AccountRepository) Update(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	account.SetUpdatedAt(now)

	query := `
		UPDATE accounts
		SET name = ?, credential = ?, pointer_root = ?, cloud_root = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		account.Name,
		account.Credential,
		account.PointerRoot,
		account.CloudRoot,
		now,
		account.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, account.ID())
	}

	return nil
}

// Delete soft-deletes an account by ID
func (r *AccountRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE accounts
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}

	return nil
}

// List retrieves all accounts matching the given criteria, excluding soft-deleted accounts.
//
// Supported criteria: "name" (string).
func (r *AccountRepository) List(criteria map[string]any) ([]*models.Account, error) {
	query := `
		SELECT id, sequence, name, credential, pointer_root, cloud_root, created_at, updated_at, deleted_at
		FROM accounts
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

// scanAccount scans a single row into a [models.Account]
func (r *AccountRepository) scanAccount(row rowScanner) (*models.Account, error) {
	var (
		id          string
		sequence    int
		name        string
		credential  string
		pointerRoot string
		cloudRoot   string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &name, &credential, &pointerRoot, &cloudRoot, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account := &models.Account{
		Name:        name,
		Credential:  credential,
		PointerRoot: pointerRoot,
		CloudRoot:   cloudRoot,
	}
	account.SetID(id)
	account.SetSequence(sequence)
	account.SetCreatedAt(createdAt)
	account.SetUpdatedAt(updatedAt)

	if deletedAt.Valid {
		t := deletedAt.Time
		account.SetDeletedAt(&t)
	}

	return account, nil
}
