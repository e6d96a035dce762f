package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
	"github.com/allisson/trustcore/internal/database"
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// MySQLPrivacyEventRepository implements PrivacyEvent persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLPrivacyEventRepository struct {
	db *sql.DB
}

// NewMySQLPrivacyEventRepository creates a new MySQL PrivacyEvent repository.
func NewMySQLPrivacyEventRepository(db *sql.DB) *MySQLPrivacyEventRepository {
	return &MySQLPrivacyEventRepository{db: db}
}

// Create inserts a new PrivacyEvent using BINARY(16) for the UUID.
// Handles nil metadata as database NULL.
func (m *MySQLPrivacyEventRepository) Create(ctx context.Context, event *auditDomain.PrivacyEvent) error {
	querier := database.GetTx(ctx, m.db)

	// Untyped nil so nil metadata lands as SQL NULL, not an empty byte slice
	var metadataArg any
	if event.Metadata != nil {
		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal privacy event metadata")
		}
		metadataArg = metadataJSON
	}

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal privacy event id")
	}

	query := `INSERT INTO privacy_events
			  (id, actor_id, actor_email, actor_role, action, resource_type, resource_id, metadata, signature, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		event.ActorID,
		event.ActorEmail,
		event.ActorRole,
		string(event.Action),
		event.ResourceType,
		event.ResourceID,
		metadataArg,
		event.Signature,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create privacy event")
	}

	return nil
}

// ListByResource retrieves the privacy events for a resource ordered by ID
// descending (newest first) with pagination. Returns an empty slice if no
// events are found.
func (m *MySQLPrivacyEventRepository) ListByResource(
	ctx context.Context,
	resourceType, resourceID string,
	offset, limit int,
) ([]*auditDomain.PrivacyEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, actor_id, actor_email, actor_role, action, resource_type, resource_id, metadata, signature, created_at
			  FROM privacy_events
			  WHERE resource_type = ? AND resource_id = ?
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, resourceType, resourceID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list privacy events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.PrivacyEvent, 0)
	for rows.Next() {
		var event auditDomain.PrivacyEvent
		var idBytes []byte
		var metadataJSON []byte
		var action string

		err := rows.Scan(
			&idBytes,
			&event.ActorID,
			&event.ActorEmail,
			&event.ActorRole,
			&action,
			&event.ResourceType,
			&event.ResourceID,
			&metadataJSON,
			&event.Signature,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan privacy event")
		}

		event.ID, err = uuid.FromBytes(idBytes)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse privacy event id")
		}

		event.Action = auditDomain.PrivacyAction(action)

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal privacy event metadata")
			}
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate privacy events")
	}

	return events, nil
}
