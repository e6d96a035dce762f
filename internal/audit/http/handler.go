// Package http provides HTTP handlers for reading the privacy audit trail.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/trustcore/internal/audit/http/dto"
	auditUseCase "github.com/allisson/trustcore/internal/audit/usecase"
	apperrors "github.com/allisson/trustcore/internal/errors"
	"github.com/allisson/trustcore/internal/httputil"
)

// Handler handles HTTP requests for the privacy audit trail read path.
type Handler struct {
	auditLogger auditUseCase.AuditLogger
	logger      *slog.Logger
}

// NewHandler creates a new audit trail handler with required dependencies.
func NewHandler(auditLogger auditUseCase.AuditLogger, logger *slog.Logger) *Handler {
	return &Handler{
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// ListEventsHandler returns the audit trail for one resource, newest first.
// Each event's signature is verified before it is returned; a tampered trail
// fails the whole request.
// GET /v1/audit-events?resource_type=...&resource_id=... - Returns 200 OK with the events.
func (h *Handler) ListEventsHandler(c *gin.Context) {
	resourceType := c.Query("resource_type")
	resourceID := c.Query("resource_id")
	if resourceType == "" || resourceID == "" {
		httputil.HandleErrorGin(
			c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "resource_type and resource_id query parameters are required"),
			h.logger,
		)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error()), h.logger)
		return
	}

	events, err := h.auditLogger.ListByResource(c.Request.Context(), resourceType, resourceID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]dto.PrivacyEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, dto.NewPrivacyEventResponse(event))
	}

	c.JSON(http.StatusOK, gin.H{"events": responses})
}
