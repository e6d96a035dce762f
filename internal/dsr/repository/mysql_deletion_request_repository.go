package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/trustcore/internal/database"
	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// MySQLDeletionRequestRepository implements DeletionRequest persistence for
// MySQL. Uses BINARY(16) for UUID storage with transaction support via
// database.GetTx().
type MySQLDeletionRequestRepository struct {
	db *sql.DB
}

// NewMySQLDeletionRequestRepository creates a new MySQL DeletionRequest repository.
func NewMySQLDeletionRequestRepository(db *sql.DB) *MySQLDeletionRequestRepository {
	return &MySQLDeletionRequestRepository{db: db}
}

// Create inserts a new deletion request row using BINARY(16) for the UUID.
func (m *MySQLDeletionRequestRepository) Create(ctx context.Context, request *dsrDomain.DeletionRequest) error {
	querier := database.GetTx(ctx, m.db)

	id, err := request.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal deletion request id")
	}

	systemsJSON, err := marshalSystems(request.SystemsDeleted)
	if err != nil {
		return err
	}

	query := `INSERT INTO pii_deletion_queue
			  (id, user_id, requested_by, reason, status, scheduled_for, completed_at,
			   systems_deleted, verification_hash, retry_count, error_message, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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

const mysqlDeletionRequestColumns = `id, user_id, requested_by, reason, status, scheduled_for, completed_at,
			   systems_deleted, verification_hash, retry_count, error_message, created_at`

// GetByID retrieves a deletion request by ID.
// Returns ErrRequestNotFound if no row exists.
func (m *MySQLDeletionRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*dsrDomain.DeletionRequest, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal deletion request id")
	}

	query := `SELECT ` + mysqlDeletionRequestColumns + `
			  FROM pii_deletion_queue
			  WHERE id = ?`

	row := querier.QueryRowContext(ctx, query, idBytes)
	request, err := scanMySQLDeletionRequest(row.Scan)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, dsrDomain.ErrRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get deletion request")
	}

	return request, nil
}

// ListPending retrieves all PENDING deletion requests ordered by scheduled_for ascending.
func (m *MySQLDeletionRequestRepository) ListPending(ctx context.Context) ([]*dsrDomain.DeletionRequest, error) {
	query := `SELECT ` + mysqlDeletionRequestColumns + `
			  FROM pii_deletion_queue
			  WHERE status = ?
			  ORDER BY scheduled_for ASC`

	return m.list(ctx, query, string(dsrDomain.DeletionStatusPending))
}

// ListDue retrieves PENDING deletion requests whose grace period has elapsed
// at the given time, ordered by scheduled_for ascending.
func (m *MySQLDeletionRequestRepository) ListDue(ctx context.Context, at time.Time) ([]*dsrDomain.DeletionRequest, error) {
	query := `SELECT ` + mysqlDeletionRequestColumns + `
			  FROM pii_deletion_queue
			  WHERE status = ? AND scheduled_for <= ?
			  ORDER BY scheduled_for ASC`

	return m.list(ctx, query, string(dsrDomain.DeletionStatusPending), at)
}

// ClaimForExecution atomically transitions a request to IN_PROGRESS. Only
// PENDING and FAILED rows are claimable. Returns false when zero rows were
// affected.
func (m *MySQLDeletionRequestRepository) ClaimForExecution(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal deletion request id")
	}

	query := `UPDATE pii_deletion_queue
			  SET status = ?, retry_count = retry_count + 1
			  WHERE id = ? AND status IN (?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(dsrDomain.DeletionStatusInProgress),
		idBytes,
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

// Finalize records the outcome of an execution attempt.
func (m *MySQLDeletionRequestRepository) Finalize(ctx context.Context, request *dsrDomain.DeletionRequest) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := request.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal deletion request id")
	}

	systemsJSON, err := marshalSystems(request.SystemsDeleted)
	if err != nil {
		return err
	}

	query := `UPDATE pii_deletion_queue
			  SET status = ?, completed_at = ?, systems_deleted = ?,
				  verification_hash = ?, error_message = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(request.Status),
		request.CompletedAt,
		systemsJSON,
		request.VerificationHash,
		request.ErrorMessage,
		idBytes,
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
func (m *MySQLDeletionRequestRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal deletion request id")
	}

	query := `UPDATE pii_deletion_queue
			  SET status = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(dsrDomain.DeletionStatusCancelled),
		idBytes,
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

func (m *MySQLDeletionRequestRepository) list(ctx context.Context, query string, args ...any) ([]*dsrDomain.DeletionRequest, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list deletion requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	requests := make([]*dsrDomain.DeletionRequest, 0)
	for rows.Next() {
		request, err := scanMySQLDeletionRequest(rows.Scan)
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

// scanMySQLDeletionRequest scans one row, parsing the BINARY(16) UUID column.
func scanMySQLDeletionRequest(scan func(dest ...any) error) (*dsrDomain.DeletionRequest, error) {
	var request dsrDomain.DeletionRequest
	var idBytes []byte
	var status string
	var completedAt sql.NullTime
	var systemsJSON []byte
	var verificationHash sql.NullString
	var errorMessage sql.NullString

	err := scan(
		&idBytes,
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

	request.ID, err = uuid.FromBytes(idBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse deletion request id")
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
