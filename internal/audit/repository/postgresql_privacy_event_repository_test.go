package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
)

func newPrivacyEvent() *auditDomain.PrivacyEvent {
	return &auditDomain.PrivacyEvent{
		ID:           uuid.Must(uuid.NewV7()),
		ActorID:      "svc-dsr-orchestrator",
		ActorEmail:   "dpo@example.com",
		ActorRole:    "data-protection-officer",
		Action:       auditDomain.ActionRequestDeletion,
		ResourceType: "deletion_request",
		ResourceID:   "d-1",
		Metadata:     map[string]any{"reason": "GDPR_RIGHT_TO_BE_FORGOTTEN"},
		Signature:    []byte("signature-bytes"),
		CreatedAt:    time.Now().UTC(),
	}
}

func TestPostgreSQLPrivacyEventRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts an event with metadata", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		event := newPrivacyEvent()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_events")).
			WithArgs(
				event.ID,
				event.ActorID,
				event.ActorEmail,
				event.ActorRole,
				string(event.Action),
				event.ResourceType,
				event.ResourceID,
				[]byte(`{"reason":"GDPR_RIGHT_TO_BE_FORGOTTEN"}`),
				event.Signature,
				event.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLPrivacyEventRepository(db)
		require.NoError(t, repo.Create(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inserts nil metadata as NULL", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		event := newPrivacyEvent()
		event.Metadata = nil

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_events")).
			WithArgs(
				event.ID,
				event.ActorID,
				event.ActorEmail,
				event.ActorRole,
				string(event.Action),
				event.ResourceType,
				event.ResourceID,
				nil,
				event.Signature,
				event.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLPrivacyEventRepository(db)
		require.NoError(t, repo.Create(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces database errors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO privacy_events")).
			WillReturnError(errors.New("connection reset"))

		repo := NewPostgreSQLPrivacyEventRepository(db)
		err = repo.Create(ctx, newPrivacyEvent())
		assert.Error(t, err)
	})
}

func TestPostgreSQLPrivacyEventRepository_ListByResource(t *testing.T) {
	ctx := context.Background()

	columns := []string{
		"id", "actor_id", "actor_email", "actor_role", "action",
		"resource_type", "resource_id", "metadata", "signature", "created_at",
	}

	t.Run("returns events for a resource", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		event := newPrivacyEvent()
		rows := sqlmock.NewRows(columns).AddRow(
			event.ID,
			event.ActorID,
			event.ActorEmail,
			event.ActorRole,
			string(event.Action),
			event.ResourceType,
			event.ResourceID,
			[]byte(`{"reason":"GDPR_RIGHT_TO_BE_FORGOTTEN"}`),
			event.Signature,
			event.CreatedAt,
		)

		mock.ExpectQuery(regexp.QuoteMeta("FROM privacy_events")).
			WithArgs("deletion_request", "d-1", 10, 0).
			WillReturnRows(rows)

		repo := NewPostgreSQLPrivacyEventRepository(db)
		events, err := repo.ListByResource(ctx, "deletion_request", "d-1", 0, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.ID, events[0].ID)
		assert.Equal(t, auditDomain.ActionRequestDeletion, events[0].Action)
		assert.Equal(t, "GDPR_RIGHT_TO_BE_FORGOTTEN", events[0].Metadata["reason"])
	})

	t.Run("returns an empty slice when nothing matches", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(regexp.QuoteMeta("FROM privacy_events")).
			WithArgs("deletion_request", "missing", 10, 0).
			WillReturnRows(sqlmock.NewRows(columns))

		repo := NewPostgreSQLPrivacyEventRepository(db)
		events, err := repo.ListByResource(ctx, "deletion_request", "missing", 0, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NotNil(t, events)
	})

	t.Run("handles NULL metadata", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		event := newPrivacyEvent()
		rows := sqlmock.NewRows(columns).AddRow(
			event.ID,
			event.ActorID,
			event.ActorEmail,
			event.ActorRole,
			string(event.Action),
			event.ResourceType,
			event.ResourceID,
			nil,
			event.Signature,
			event.CreatedAt,
		)

		mock.ExpectQuery(regexp.QuoteMeta("FROM privacy_events")).
			WithArgs("deletion_request", "d-1", 10, 0).
			WillReturnRows(rows)

		repo := NewPostgreSQLPrivacyEventRepository(db)
		events, err := repo.ListByResource(ctx, "deletion_request", "d-1", 0, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Nil(t, events[0].Metadata)
	})
}
