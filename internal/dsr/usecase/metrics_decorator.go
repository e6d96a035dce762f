package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
	"github.com/allisson/trustcore/internal/metrics"
)

// dsrOrchestratorWithMetrics decorates DSROrchestrator with metrics instrumentation.
type dsrOrchestratorWithMetrics struct {
	next    DSROrchestrator
	metrics metrics.BusinessMetrics
}

// NewDSROrchestratorWithMetrics wraps a DSROrchestrator with metrics recording.
func NewDSROrchestratorWithMetrics(orchestrator DSROrchestrator, m metrics.BusinessMetrics) DSROrchestrator {
	return &dsrOrchestratorWithMetrics{
		next:    orchestrator,
		metrics: m,
	}
}

// record captures operation count and duration with a success/error status.
func (d *dsrOrchestratorWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "dsr", operation, status)
	d.metrics.RecordDuration(ctx, "dsr", operation, time.Since(start), status)
}

// ExportUserData records metrics for export operations.
func (d *dsrOrchestratorWithMetrics) ExportUserData(
	ctx context.Context,
	userID string,
	requestedBy Actor,
) (*dsrDomain.ExportBundle, error) {
	start := time.Now()
	bundle, err := d.next.ExportUserData(ctx, userID, requestedBy)
	d.record(ctx, "export_user_data", start, err)
	return bundle, err
}

// RequestDeletion records metrics for deletion queueing.
func (d *dsrOrchestratorWithMetrics) RequestDeletion(
	ctx context.Context,
	input *RequestDeletionInput,
	actor Actor,
) (uuid.UUID, error) {
	start := time.Now()
	id, err := d.next.RequestDeletion(ctx, input, actor)
	d.record(ctx, "request_deletion", start, err)
	return id, err
}

// ExecuteDeletion records metrics for deletion execution.
func (d *dsrOrchestratorWithMetrics) ExecuteDeletion(
	ctx context.Context,
	deletionID uuid.UUID,
	actor Actor,
) (*dsrDomain.DeletionResult, error) {
	start := time.Now()
	result, err := d.next.ExecuteDeletion(ctx, deletionID, actor)
	d.record(ctx, "execute_deletion", start, err)
	return result, err
}

// CancelDeletion records metrics for deletion cancellation.
func (d *dsrOrchestratorWithMetrics) CancelDeletion(ctx context.Context, deletionID uuid.UUID, actor Actor) error {
	start := time.Now()
	err := d.next.CancelDeletion(ctx, deletionID, actor)
	d.record(ctx, "cancel_deletion", start, err)
	return err
}

// GetPendingDeletions records metrics for pending list reads.
func (d *dsrOrchestratorWithMetrics) GetPendingDeletions(ctx context.Context) ([]*dsrDomain.DeletionRequest, error) {
	start := time.Now()
	requests, err := d.next.GetPendingDeletions(ctx)
	d.record(ctx, "get_pending_deletions", start, err)
	return requests, err
}

// GetDeletionStatus records metrics for status reads.
func (d *dsrOrchestratorWithMetrics) GetDeletionStatus(
	ctx context.Context,
	deletionID uuid.UUID,
) (*dsrDomain.DeletionRequest, error) {
	start := time.Now()
	request, err := d.next.GetDeletionStatus(ctx, deletionID)
	d.record(ctx, "get_deletion_status", start, err)
	return request, err
}
