package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/trustcore/internal/database"
	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// MySQLUserDataRepository implements user data persistence for MySQL.
// External ID mapping UUIDs are stored as BINARY(16).
type MySQLUserDataRepository struct {
	db *sql.DB
}

// NewMySQLUserDataRepository creates a new MySQL user data repository.
func NewMySQLUserDataRepository(db *sql.DB) *MySQLUserDataRepository {
	return &MySQLUserDataRepository{db: db}
}

// GetUser retrieves a user profile by ID.
// Returns ErrUserNotFound if no row exists.
func (m *MySQLUserDataRepository) GetUser(ctx context.Context, userID string) (*dsrDomain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, email, first_name, last_name, created_at, updated_at
			  FROM users
			  WHERE id = ?`

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
// Returns (nil, nil) when the user has no PII row.
func (m *MySQLUserDataRepository) GetEncryptedPII(ctx context.Context, userID string) (*dsrDomain.EncryptedUserPII, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT user_id, fields, created_at, updated_at
			  FROM encrypted_user_pii
			  WHERE user_id = ?`

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
func (m *MySQLUserDataRepository) GetExternalIDMappings(ctx context.Context, userID string) ([]*dsrDomain.ExternalIDMapping, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, provider, external_id, created_at
			  FROM external_id_mappings
			  WHERE user_id = ?
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
		var idBytes []byte

		err := rows.Scan(
			&idBytes,
			&mapping.UserID,
			&mapping.Provider,
			&mapping.ExternalID,
			&mapping.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan external ID mapping")
		}

		mapping.ID, err = uuid.FromBytes(idBytes)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse external ID mapping id")
		}

		mappings = append(mappings, &mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate external ID mappings")
	}

	return mappings, nil
}

// DeleteEncryptedPII removes a user's encrypted PII row. Delete-if-exists:
// a missing row is success.
func (m *MySQLUserDataRepository) DeleteEncryptedPII(ctx context.Context, userID string) error {
	querier := database.GetTx(ctx, m.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM encrypted_user_pii WHERE user_id = ?`, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete encrypted PII")
	}

	return nil
}

// DeleteExternalIDMappings removes all of a user's external ID mappings.
// Delete-if-exists: zero affected rows is success.
func (m *MySQLUserDataRepository) DeleteExternalIDMappings(ctx context.Context, userID string) error {
	querier := database.GetTx(ctx, m.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM external_id_mappings WHERE user_id = ?`, userID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete external ID mappings")
	}

	return nil
}

// AnonymizeUser overwrites a user's identifying columns with deterministic
// placeholders, preserving the row for referential integrity.
// Returns ErrUserNotFound when the user row does not exist.
func (m *MySQLUserDataRepository) AnonymizeUser(ctx context.Context, userID string) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE users
			  SET email = ?, first_name = ?, last_name = ?, updated_at = ?
			  WHERE id = ?`

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
