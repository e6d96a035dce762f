// Package http provides HTTP handlers for data subject request operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/trustcore/internal/dsr/http/dto"
	dsrUseCase "github.com/allisson/trustcore/internal/dsr/usecase"
	apperrors "github.com/allisson/trustcore/internal/errors"
	"github.com/allisson/trustcore/internal/httputil"
	serviceAuthHTTP "github.com/allisson/trustcore/internal/serviceauth/http"
	customValidation "github.com/allisson/trustcore/internal/validation"
)

// Handler handles HTTP requests for data subject request operations.
// It derives the audit actor from the verified calling service plus the
// request's optional actor attribution fields.
type Handler struct {
	orchestrator dsrUseCase.DSROrchestrator
	logger       *slog.Logger
}

// NewHandler creates a new DSR handler with required dependencies.
func NewHandler(orchestrator dsrUseCase.DSROrchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// actorFromRequest builds the audit actor: the verified caller's service ID
// as the actor identity, enriched with any attribution the caller supplied
// on behalf of a human operator.
func actorFromRequest(c *gin.Context, email, role string) dsrUseCase.Actor {
	actor := dsrUseCase.Actor{Email: email, Role: role}
	if caller, ok := serviceAuthHTTP.GetCaller(c.Request.Context()); ok {
		actor.ID = caller.ServiceID
	}
	return actor
}

// ExportHandler aggregates everything held about a user.
// POST /v1/users/:user_id/export - Returns 200 OK with the export bundle.
func (h *Handler) ExportHandler(c *gin.Context) {
	userID := c.Param("user_id")

	var req dto.ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
	}

	bundle, err := h.orchestrator.ExportUserData(
		c.Request.Context(),
		userID,
		actorFromRequest(c, req.ActorEmail, req.ActorRole),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewExportBundleResponse(bundle))
}

// RequestDeletionHandler queues an erasure request.
// POST /v1/deletions - Returns 201 Created with the queued request.
func (h *Handler) RequestDeletionHandler(c *gin.Context) {
	var req dto.RequestDeletionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := &dsrUseCase.RequestDeletionInput{
		UserID:      req.UserID,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
	}

	id, err := h.orchestrator.RequestDeletion(
		c.Request.Context(),
		input,
		actorFromRequest(c, req.ActorEmail, req.ActorRole),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	request, err := h.orchestrator.GetDeletionStatus(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.NewDeletionRequestResponse(request))
}

// ExecuteDeletionHandler runs a due erasure request.
// POST /v1/deletions/:id/execute - Returns 200 OK with the attempt's result.
func (h *Handler) ExecuteDeletionHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid deletion id"), h.logger)
		return
	}

	result, err := h.orchestrator.ExecuteDeletion(c.Request.Context(), id, actorFromRequest(c, "", ""))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDeletionResultResponse(result))
}

// CancelDeletionHandler withdraws a queued erasure request.
// POST /v1/deletions/:id/cancel - Returns 204 No Content on success.
func (h *Handler) CancelDeletionHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid deletion id"), h.logger)
		return
	}

	var req dto.CancelDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err = h.orchestrator.CancelDeletion(c.Request.Context(), id, actorFromRequest(c, req.ActorEmail, req.ActorRole))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetDeletionHandler retrieves one deletion request.
// GET /v1/deletions/:id - Returns 200 OK with the request.
func (h *Handler) GetDeletionHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid deletion id"), h.logger)
		return
	}

	request, err := h.orchestrator.GetDeletionStatus(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDeletionRequestResponse(request))
}

// ListPendingDeletionsHandler lists all PENDING deletion requests.
// GET /v1/deletions - Returns 200 OK with the list.
func (h *Handler) ListPendingDeletionsHandler(c *gin.Context) {
	requests, err := h.orchestrator.GetPendingDeletions(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]dto.DeletionRequestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, dto.NewDeletionRequestResponse(request))
	}

	c.JSON(http.StatusOK, gin.H{"deletions": responses})
}
