package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/allisson/trustcore/internal/database"
	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// PostgreSQLUserDataRepository implements user data persistence for
// PostgreSQL: the profile row, the encrypted PII row, and the external ID
// mappings that export and erasure operate on.
type PostgreSQLUserDataRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserDataRepository creates a new PostgreSQL user data repository.
func NewPostgreSQLUserDataRepository(db *sql.DB) *PostgreSQLUserDataRepository {
	return &PostgreSQLUserDataRepository{db: db}
}

// GetUser retrieves a user profile by ID.
// Returns ErrUserNotFound if no row exists.
func (p *PostgreSQLUserDataRepository) GetUser(ctx context.Context, userID string) (*dsrDomain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, email, first_name, last_name, created_at, updated_at
			  FROM users
			  WHERE id = $1`

	var user dsrDomain.User
	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, dsrDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}

	return &user, nil
}

// GetEncryptedPII retrieves a user's encrypted PII row.
// Returns (nil, nil) when the user has no PII row; absence is a normal state,
// not an error.
func (p *PostgreSQLUserDataRepository) GetEncryptedPII(ctx context.Context, userID string) (*dsrDomain.EncryptedUserPII, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT user_id, fields, created_at, updated_at
			  FROM encrypted_user_pii
			  WHERE user_id = $1`

	var pii dsrDomain.EncryptedUserPII
	var fieldsJSON []byte
	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&pii.UserID,
		&fieldsJSON,
		&pii.CreatedAt,
		&pii.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to get encrypted PII")
	}

	if fieldsJSON != nil {
		if err := json.Unmarshal(fieldsJSON, &pii.Fields); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal encrypted PII fields")
		}
	}

	return &pii, nil
}

// GetExternalIDMappings retrieves a user's external ID mappings ordered by
// provider. Returns an empty slice when the user has none.
func (p *PostgreSQLUserDataRepository) GetExternalIDMappings(ctx context.Context, userID string) ([]*dsrDomain.ExternalIDMapping, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, provider, external_id, created_at
			  FROM external_id_mappings
			  WHERE user_id = $1
			  ORDER BY provider ASC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list external ID mappings")
	}
	defer func() {
		_ = rows.Close()
	}()

	mappings := make([]*dsrDomain.ExternalIDMapping, 0)
	for rows.Next() {
		var mapping dsrDomain.ExternalIDMapping
		err := rows.Scan(
			&mapping.ID,
			&mapping.UserID,
			&mapping.Provider,
			&mapping.ExternalID,
			&mapping.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan external ID mapping")
		}
		mappings = append(mappings, &mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate external ID mappings")
	}

	return mappings, nil
}

// DeleteEncryptedPII removes a user's encrypted PII row. Delete-if-exists:
// a missing row is success, so interrupted deletions can re-run safely.
func (p *PostgreSQLUserDataRepository) DeleteEncryptedPII(ctx context.Context, userID string) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM encrypted_user_pii WHERE user_id = $1`, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete encrypted PII")
	}

	return nil
}

// DeleteExternalIDMappings removes all of a user's external ID mappings.
// Delete-if-exists: zero affected rows is success.
func (p *PostgreSQLUserDataRepository) DeleteExternalIDMappings(ctx context.Context, userID string) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM external_id_mappings WHERE user_id = $1`, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete external ID mappings")
	}

	return nil
}

// AnonymizeUser overwrites a user's identifying columns with deterministic
// placeholders, preserving the row for referential integrity.
// Returns ErrUserNotFound when the user row does not exist.
func (p *PostgreSQLUserDataRepository) AnonymizeUser(ctx context.Context, userID string) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE users
			  SET email = $1, first_name = $2, last_name = $3, updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		dsrDomain.AnonymizedEmail(userID),
		dsrDomain.AnonymizedName,
		dsrDomain.AnonymizedName,
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to anonymize user")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read anonymize result")
	}
	if affected == 0 {
		return dsrDomain.ErrUserNotFound
	}

	return nil
}
