// Package repository implements deletion request and user data persistence
// for PostgreSQL and MySQL.
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

// PostgreSQLDeletionRequestRepository implements DeletionRequest persistence
// for PostgreSQL. Uses native UUID types with transaction support via
// database.GetTx().
type PostgreSQLDeletionRequestRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeletionRequestRepository creates a new PostgreSQL DeletionRequest repository.
func NewPostgreSQLDeletionRequestRepository(db *sql.DB) *PostgreSQLDeletionRequestRepository {
	return &PostgreSQLDeletionRequestRepository{db: db}
}

// Create inserts a new deletion request row.
func (p *PostgreSQLDeletionRequestRepository) Create(ctx context.Context, request *dsrDomain.DeletionRequest) error {
	querier := database.GetTx(ctx, p.db)

	systemsJSON, err := marshalSystems(request.SystemsDeleted)
	if err != nil {
		return err
	}

	query := `INSERT INTO pii_deletion_queue
			  (id, user_id, requested_by, reason, status, scheduled_for, completed_at,
			   systems_deleted, verification_hash, retry_count, error_message, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		request.ID,
		request.UserID,
		request.RequestedBy,
		request.Reason,
		string(request.Status),
		request.ScheduledFor,
		request.CompletedAt,
		systemsJSON,
		request.VerificationHash,
		request.RetryCount,
		request.ErrorMessage,
		request.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create deletion request")
	}

	return nil
}

const postgresDeletionRequestColumns = `id, user_id, requested_by, reason, status, scheduled_for, completed_at,
			   systems_deleted, verification_hash, retry_count, error_message, created_at`

// GetByID retrieves a deletion request by ID.
// Returns ErrRequestNotFound if no row exists.
func (p *PostgreSQLDeletionRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*dsrDomain.DeletionRequest, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresDeletionRequestColumns + `
			  FROM pii_deletion_queue
			  WHERE id = $1`

	row := querier.QueryRowContext(ctx, query, id)
	request, err := scanDeletionRequest(row.Scan)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, dsrDomain.ErrRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get deletion request")
	}

	return request, nil
}

// ListPending retrieves all PENDING deletion requests ordered by scheduled_for ascending.
func (p *PostgreSQLDeletionRequestRepository) ListPending(ctx context.Context) ([]*dsrDomain.DeletionRequest, error) {
	query := `SELECT ` + postgresDeletionRequestColumns + `
			  FROM pii_deletion_queue
			  WHERE status = $1
			  ORDER BY scheduled_for ASC`

	return p.list(ctx, query, string(dsrDomain.DeletionStatusPending))
}

// ListDue retrieves PENDING deletion requests whose grace period has elapsed
// at the given time, ordered by scheduled_for ascending.
func (p *PostgreSQLDeletionRequestRepository) ListDue(ctx context.Context, at time.Time) ([]*dsrDomain.DeletionRequest, error) {
	query := `SELECT ` + postgresDeletionRequestColumns + `
			  FROM pii_deletion_queue
			  WHERE status = $1 AND scheduled_for <= $2
			  ORDER BY scheduled_for ASC`

	return p.list(ctx, query, string(dsrDomain.DeletionStatusPending), at)
}

// ClaimForExecution atomically transitions a request to IN_PROGRESS. Only
// PENDING and FAILED rows are claimable; the conditional update doubles as a
// mutex through the database, so two concurrent executors cannot both claim
// the same request. Returns false when zero rows were affected.
func (p *PostgreSQLDeletionRequestRepository) ClaimForExecution(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE pii_deletion_queue
			  SET status = $1, retry_count = retry_count + 1
			  WHERE id = $2 AND status IN ($3, $4)`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(dsrDomain.DeletionStatusInProgress),
		id,
		string(dsrDomain.DeletionStatusPending),
		string(dsrDomain.DeletionStatusFailed),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim deletion request")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read claim result")
	}

	return affected == 1, nil
}

// Finalize records the outcome of an execution attempt: terminal status,
// completion time, systems deleted, verification hash, and error message.
func (p *PostgreSQLDeletionRequestRepository) Finalize(ctx context.Context, request *dsrDomain.DeletionRequest) error {
	querier := database.GetTx(ctx, p.db)

	systemsJSON, err := marshalSystems(request.SystemsDeleted)
	if err != nil {
		return err
	}

	query := `UPDATE pii_deletion_queue
			  SET status = $1, completed_at = $2, systems_deleted = $3,
				  verification_hash = $4, error_message = $5
			  WHERE id = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(request.Status),
		request.CompletedAt,
		systemsJSON,
		request.VerificationHash,
		request.ErrorMessage,
		request.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to finalize deletion request")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read finalize result")
	}
	if affected == 0 {
		return dsrDomain.ErrRequestNotFound
	}

	return nil
}

// Cancel atomically transitions a PENDING request to CANCELLED.
// Returns false when the request was not PENDING (or does not exist).
func (p *PostgreSQLDeletionRequestRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE pii_deletion_queue
			  SET status = $1
			  WHERE id = $2 AND status = $3`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(dsrDomain.DeletionStatusCancelled),
		id,
		string(dsrDomain.DeletionStatusPending),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to cancel deletion request")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read cancel result")
	}

	return affected == 1, nil
}

func (p *PostgreSQLDeletionRequestRepository) list(ctx context.Context, query string, args ...any) ([]*dsrDomain.DeletionRequest, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list deletion requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	requests := make([]*dsrDomain.DeletionRequest, 0)
	for rows.Next() {
		request, err := scanDeletionRequest(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan deletion request")
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate deletion requests")
	}

	return requests, nil
}

// scanDeletionRequest scans one row using the given scan function, shared by
// the single-row and multi-row paths.
func scanDeletionRequest(scan func(dest ...any) error) (*dsrDomain.DeletionRequest, error) {
	var request dsrDomain.DeletionRequest
	var status string
	var completedAt sql.NullTime
	var systemsJSON []byte
	var verificationHash sql.NullString
	var errorMessage sql.NullString

	err := scan(
		&request.ID,
		&request.UserID,
		&request.RequestedBy,
		&request.Reason,
		&status,
		&request.ScheduledFor,
		&completedAt,
		&systemsJSON,
		&verificationHash,
		&request.RetryCount,
		&errorMessage,
		&request.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.Status = dsrDomain.DeletionStatus(status)
	if completedAt.Valid {
		request.CompletedAt = &completedAt.Time
	}
	request.VerificationHash = verificationHash.String
	request.ErrorMessage = errorMessage.String

	if systemsJSON != nil {
		if err := unmarshalSystems(systemsJSON, &request.SystemsDeleted); err != nil {
			return nil, err
		}
	}

	return &request, nil
}

// marshalSystems encodes the systems_deleted list as JSON. A nil list returns
// an untyped nil so it lands as SQL NULL, not an empty byte slice.
func marshalSystems(systems []string) (any, error) {
	if systems == nil {
		return nil, nil
	}
	data, err := json.Marshal(systems)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal systems_deleted")
	}
	return data, nil
}

// unmarshalSystems decodes the systems_deleted JSON column.
func unmarshalSystems(data []byte, systems *[]string) error {
	if err := json.Unmarshal(data, systems); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal systems_deleted")
	}
	return nil
}
