// Package repository implements privacy event persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
	"github.com/allisson/trustcore/internal/database"
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// PostgreSQLPrivacyEventRepository implements PrivacyEvent persistence for
// PostgreSQL. Uses native UUID types with transaction support via
// database.GetTx().
type PostgreSQLPrivacyEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLPrivacyEventRepository creates a new PostgreSQL PrivacyEvent repository.
func NewPostgreSQLPrivacyEventRepository(db *sql.DB) *PostgreSQLPrivacyEventRepository {
	return &PostgreSQLPrivacyEventRepository{db: db}
}

// Create inserts a new PrivacyEvent. Handles nil metadata as database NULL.
func (p *PostgreSQLPrivacyEventRepository) Create(ctx context.Context, event *auditDomain.PrivacyEvent) error {
	querier := database.GetTx(ctx, p.db)

	// Untyped nil so nil metadata lands as SQL NULL, not an empty byte slice
	var metadataArg any
	if event.Metadata != nil {
		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal privacy event metadata")
		}
		metadataArg = metadataJSON
	}

	query := `INSERT INTO privacy_events
			  (id, actor_id, actor_email, actor_role, action, resource_type, resource_id, metadata, signature, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
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
// events are found. Handles NULL metadata by returning a nil map.
func (p *PostgreSQLPrivacyEventRepository) ListByResource(
	ctx context.Context,
	resourceType, resourceID string,
	offset, limit int,
) ([]*auditDomain.PrivacyEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, actor_id, actor_email, actor_role, action, resource_type, resource_id, metadata, signature, created_at
			  FROM privacy_events
			  WHERE resource_type = $1 AND resource_id = $2
			  ORDER BY id DESC
			  LIMIT $3 OFFSET $4`

	rows, err := querier.QueryContext(ctx, query, resourceType, resourceID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list privacy events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.PrivacyEvent, 0)
	for rows.Next() {
		event, err := scanPrivacyEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate privacy events")
	}

	return events, nil
}

// scanPrivacyEvent scans one privacy event row shared by the list queries.
func scanPrivacyEvent(rows *sql.Rows) (*auditDomain.PrivacyEvent, error) {
	var event auditDomain.PrivacyEvent
	var metadataJSON []byte
	var action string

	err := rows.Scan(
		&event.ID,
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

	event.Action = auditDomain.PrivacyAction(action)

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal privacy event metadata")
		}
	}

	return &event, nil
}
