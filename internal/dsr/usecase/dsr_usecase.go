package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
	auditUseCase "github.com/allisson/trustcore/internal/audit/usecase"
	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// piiExportNote annotates exported PII so the consumer knows the values are
// still ciphertext.
const piiExportNote = "fields are AES-256-GCM encrypted; decrypt with the field encryption engine using this user's key material"

// Audit resource types used by the orchestrator.
const (
	resourceTypeUser            = "user"
	resourceTypeDeletionRequest = "deletion_request"
)

// dsrOrchestrator implements DSROrchestrator.
type dsrOrchestrator struct {
	deletionRepo DeletionRequestRepository
	userDataRepo UserDataRepository
	auditLogger  auditUseCase.AuditLogger
	logger       *slog.Logger
	now          func() time.Time
}

// NewDSROrchestrator creates a DSROrchestrator with the provided dependencies.
func NewDSROrchestrator(
	deletionRepo DeletionRequestRepository,
	userDataRepo UserDataRepository,
	auditLogger auditUseCase.AuditLogger,
	logger *slog.Logger,
) DSROrchestrator {
	return &dsrOrchestrator{
		deletionRepo: deletionRepo,
		userDataRepo: userDataRepo,
		auditLogger:  auditLogger,
		logger:       logger,
		now:          time.Now,
	}
}

// ExportUserData aggregates everything held about a user for a GDPR access or
// portability request. The audit event is written first: an export that fails
// halfway still leaves a trace that access was attempted. Reads run
// concurrently since they touch independent tables.
func (d *dsrOrchestrator) ExportUserData(
	ctx context.Context,
	userID string,
	requestedBy Actor,
) (*dsrDomain.ExportBundle, error) {
	err := d.auditLogger.Log(
		ctx,
		requestedBy.ID, requestedBy.Email, requestedBy.Role,
		auditDomain.ActionExportData,
		resourceTypeUser, userID,
		nil,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to audit export")
	}

	var profile *dsrDomain.User
	var pii *dsrDomain.EncryptedUserPII
	var mappings []*dsrDomain.ExternalIDMapping

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		profile, err = d.userDataRepo.GetUser(groupCtx, userID)
		return err
	})
	group.Go(func() error {
		var err error
		pii, err = d.userDataRepo.GetEncryptedPII(groupCtx, userID)
		return err
	})
	group.Go(func() error {
		var err error
		mappings, err = d.userDataRepo.GetExternalIDMappings(groupCtx, userID)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, apperrors.Wrap(err, "failed to read user data for export")
	}

	bundle := &dsrDomain.ExportBundle{
		UserID:       userID,
		GeneratedAt:  d.now().UTC(),
		Profile:      profile,
		EncryptedPII: pii,
		ExternalIDs:  mappings,
		Sources:      []string{"users"},
		RecordCounts: map[string]int{"users": 1},
	}

	if pii != nil {
		bundle.PIINote = piiExportNote
		bundle.Sources = append(bundle.Sources, dsrDomain.SourceEncryptedPII)
		bundle.RecordCounts[dsrDomain.SourceEncryptedPII] = len(pii.Fields)
	}
	if len(mappings) > 0 {
		bundle.Sources = append(bundle.Sources, dsrDomain.SourceExternalIDMappings)
	}
	bundle.RecordCounts[dsrDomain.SourceExternalIDMappings] = len(mappings)

	d.logger.Info("user data exported",
		slog.String("user_id", userID),
		slog.String("requested_by", requestedBy.ID),
		slog.Int("external_id_mappings", len(mappings)))

	return bundle, nil
}

// RequestDeletion queues an erasure request. The request stays PENDING for
// the full grace period before an executor may claim it, giving the subject
// a withdrawal window.
func (d *dsrOrchestrator) RequestDeletion(
	ctx context.Context,
	input *RequestDeletionInput,
	actor Actor,
) (uuid.UUID, error) {
	now := d.now().UTC()

	request := &dsrDomain.DeletionRequest{
		ID:           uuid.Must(uuid.NewV7()),
		UserID:       input.UserID,
		RequestedBy:  input.RequestedBy,
		Reason:       input.Reason,
		Status:       dsrDomain.DeletionStatusPending,
		ScheduledFor: now.Add(dsrDomain.GracePeriod),
		CreatedAt:    now,
	}

	err := d.auditLogger.Log(
		ctx,
		actor.ID, actor.Email, actor.Role,
		auditDomain.ActionRequestDeletion,
		resourceTypeDeletionRequest, request.ID.String(),
		map[string]any{
			"user_id":       input.UserID,
			"reason":        input.Reason,
			"scheduled_for": request.ScheduledFor.Format(time.RFC3339),
		},
	)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to audit deletion request")
	}

	if err := d.deletionRepo.Create(ctx, request); err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to queue deletion request")
	}

	d.logger.Info("deletion requested",
		slog.String("deletion_id", request.ID.String()),
		slog.String("user_id", input.UserID),
		slog.Time("scheduled_for", request.ScheduledFor))

	return request.ID, nil
}

// ExecuteDeletion claims the request and runs the erasure steps in sequence:
// delete the encrypted PII row, delete the external ID mappings, anonymize
// the profile. Each step's failure is collected rather than aborting the
// rest: erasing what can be erased takes priority over atomicity, and every
// step is idempotent so a FAILED request can be re-claimed and re-run to
// convergence.
func (d *dsrOrchestrator) ExecuteDeletion(
	ctx context.Context,
	deletionID uuid.UUID,
	actor Actor,
) (*dsrDomain.DeletionResult, error) {
	request, err := d.deletionRepo.GetByID(ctx, deletionID)
	if err != nil {
		return nil, err
	}

	claimed, err := d.deletionRepo.ClaimForExecution(ctx, deletionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim deletion request")
	}
	if !claimed {
		// The conditional update lost: re-read to report why.
		current, err := d.deletionRepo.GetByID(ctx, deletionID)
		if err != nil {
			return nil, err
		}
		if current.Status == dsrDomain.DeletionStatusCompleted {
			return nil, dsrDomain.ErrAlreadyCompleted
		}
		return nil, fmt.Errorf("%w: status is %s", dsrDomain.ErrInvalidStateForExecute, current.Status)
	}

	deleted := make([]string, 0, 3)
	stepErrors := make([]string, 0)

	steps := []struct {
		source string
		run    func(context.Context, string) error
	}{
		{dsrDomain.SourceEncryptedPII, d.userDataRepo.DeleteEncryptedPII},
		{dsrDomain.SourceExternalIDMappings, d.userDataRepo.DeleteExternalIDMappings},
		{dsrDomain.SourceUsersAnonymized, d.userDataRepo.AnonymizeUser},
	}
	for _, step := range steps {
		if err := step.run(ctx, request.UserID); err != nil {
			d.logger.Error("deletion step failed",
				slog.String("deletion_id", deletionID.String()),
				slog.String("source", step.source),
				slog.String("error", err.Error()))
			stepErrors = append(stepErrors, fmt.Sprintf("%s: %s", step.source, err.Error()))
			continue
		}
		deleted = append(deleted, step.source)
	}

	completedAt := d.now().UTC()
	verificationHash := dsrDomain.ComputeVerificationHash(request.UserID, deleted, completedAt)

	status := dsrDomain.DeletionStatusCompleted
	if len(stepErrors) > 0 {
		status = dsrDomain.DeletionStatusFailed
	}

	request.Status = status
	request.CompletedAt = &completedAt
	request.SystemsDeleted = deleted
	request.VerificationHash = verificationHash
	request.ErrorMessage = strings.Join(stepErrors, "; ")

	if err := d.deletionRepo.Finalize(ctx, request); err != nil {
		return nil, apperrors.Wrap(err, "failed to finalize deletion request")
	}

	err = d.auditLogger.Log(
		ctx,
		actor.ID, actor.Email, actor.Role,
		auditDomain.ActionConfirmDeletion,
		resourceTypeDeletionRequest, deletionID.String(),
		map[string]any{
			"user_id":           request.UserID,
			"status":            string(status),
			"systems_deleted":   deleted,
			"verification_hash": verificationHash,
			"errors":            stepErrors,
		},
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to audit deletion execution")
	}

	d.logger.Info("deletion executed",
		slog.String("deletion_id", deletionID.String()),
		slog.String("user_id", request.UserID),
		slog.String("status", string(status)),
		slog.Int("errors", len(stepErrors)))

	return &dsrDomain.DeletionResult{
		DeletionID:       deletionID,
		UserID:           request.UserID,
		Status:           status,
		SystemsDeleted:   deleted,
		Errors:           stepErrors,
		VerificationHash: verificationHash,
		CompletedAt:      completedAt,
	}, nil
}

// CancelDeletion withdraws a request during its grace period. Only PENDING
// requests can be cancelled; the conditional update makes the check atomic
// with the transition.
func (d *dsrOrchestrator) CancelDeletion(ctx context.Context, deletionID uuid.UUID, actor Actor) error {
	request, err := d.deletionRepo.GetByID(ctx, deletionID)
	if err != nil {
		return err
	}

	cancelled, err := d.deletionRepo.Cancel(ctx, deletionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to cancel deletion request")
	}
	if !cancelled {
		return fmt.Errorf("%w: status is %s", dsrDomain.ErrInvalidStateForCancel, request.Status)
	}

	err = d.auditLogger.Log(
		ctx,
		actor.ID, actor.Email, actor.Role,
		auditDomain.ActionCancelDeletion,
		resourceTypeDeletionRequest, deletionID.String(),
		map[string]any{"user_id": request.UserID},
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to audit deletion cancellation")
	}

	d.logger.Info("deletion cancelled",
		slog.String("deletion_id", deletionID.String()),
		slog.String("user_id", request.UserID),
		slog.String("cancelled_by", actor.ID))

	return nil
}

// GetPendingDeletions lists all PENDING requests.
func (d *dsrOrchestrator) GetPendingDeletions(ctx context.Context) ([]*dsrDomain.DeletionRequest, error) {
	requests, err := d.deletionRepo.ListPending(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending deletions")
	}
	return requests, nil
}

// GetDeletionStatus retrieves one request by ID.
func (d *dsrOrchestrator) GetDeletionStatus(ctx context.Context, deletionID uuid.UUID) (*dsrDomain.DeletionRequest, error) {
	return d.deletionRepo.GetByID(ctx, deletionID)
}
