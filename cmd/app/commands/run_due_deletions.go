package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	dsrUseCase "github.com/allisson/trustcore/internal/dsr/usecase"
)

// dueDeletionOutcome records the result of one execution attempt for output.
type dueDeletionOutcome struct {
	DeletionID string `json:"deletion_id"`
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// RunDueDeletions executes all deletion requests whose grace period has
// elapsed. Intended to be triggered externally (cron, scheduler); there is no
// in-process timer. Each request is executed independently: one failure does
// not stop the batch, and failed requests stay claimable for the next run.
//
// Requirements: database must be migrated and AUDIT_SIGNING_SECRET set, every
// execution writes a signed audit event.
func RunDueDeletions(
	ctx context.Context,
	orchestrator dsrUseCase.DSROrchestrator,
	deletionRepo dsrUseCase.DeletionRequestRepository,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	format string,
) error {
	if actorID == "" {
		actorID = "dsr-worker"
	}
	actor := dsrUseCase.Actor{
		ID:    actorID,
		Email: fmt.Sprintf("%s@internal", actorID),
		Role:  "system",
	}

	due, err := deletionRepo.ListDue(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to list due deletion requests: %w", err)
	}

	logger.Info("executing due deletion requests", slog.Int("count", len(due)))

	outcomes := make([]dueDeletionOutcome, 0, len(due))
	var failures int

	for _, request := range due {
		outcome := dueDeletionOutcome{
			DeletionID: request.ID.String(),
			UserID:     request.UserID,
		}

		result, err := orchestrator.ExecuteDeletion(ctx, request.ID, actor)
		switch {
		case err != nil:
			failures++
			outcome.Status = "error"
			outcome.Error = err.Error()
			logger.Error("deletion execution failed",
				slog.String("deletion_id", request.ID.String()),
				slog.String("error", err.Error()),
			)
		default:
			outcome.Status = string(result.Status)
			if len(result.Errors) > 0 {
				failures++
			}
			logger.Info("deletion executed",
				slog.String("deletion_id", request.ID.String()),
				slog.String("status", string(result.Status)),
			)
		}

		outcomes = append(outcomes, outcome)
	}

	if format == "json" {
		if err := outputDueDeletionsJSON(writer, outcomes, failures); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputDueDeletionsText(writer, outcomes, failures)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d deletion request(s) did not complete cleanly", failures, len(due))
	}

	return nil
}

// outputDueDeletionsText outputs the batch result in human-readable text format.
func outputDueDeletionsText(writer io.Writer, outcomes []dueDeletionOutcome, failures int) {
	_, _ = fmt.Fprintf(writer, "Executed %d due deletion request(s)\n", len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			_, _ = fmt.Fprintf(writer, "  - %s (user %s): %s (%s)\n",
				outcome.DeletionID, outcome.UserID, outcome.Status, outcome.Error)
			continue
		}
		_, _ = fmt.Fprintf(writer, "  - %s (user %s): %s\n",
			outcome.DeletionID, outcome.UserID, outcome.Status)
	}
	if failures > 0 {
		_, _ = fmt.Fprintf(writer, "Failures: %d\n", failures)
	}
}

// outputDueDeletionsJSON outputs the batch result in JSON format for machine consumption.
func outputDueDeletionsJSON(writer io.Writer, outcomes []dueDeletionOutcome, failures int) error {
	result := map[string]interface{}{
		"executed": len(outcomes),
		"failures": failures,
		"outcomes": outcomes,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
