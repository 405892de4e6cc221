// Package http provides the admin HTTP handlers for publishing and browsing newsletter issues.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/httputil"
	idempotencyDomain "github.com/allisson/newsletter/internal/idempotency/domain"
	"github.com/allisson/newsletter/internal/newsletter/http/dto"
	"github.com/allisson/newsletter/internal/newsletter/usecase"
	userHTTP "github.com/allisson/newsletter/internal/user/http"
	customValidation "github.com/allisson/newsletter/internal/validation"
)

// NewsletterHandler handles the admin newsletter endpoints.
type NewsletterHandler struct {
	newsletterUseCase usecase.UseCase
	logger            *slog.Logger
}

// NewNewsletterHandler creates a new newsletter handler.
func NewNewsletterHandler(newsletterUseCase usecase.UseCase, logger *slog.Logger) *NewsletterHandler {
	return &NewsletterHandler{
		newsletterUseCase: newsletterUseCase,
		logger:            logger,
	}
}

// PublishHandler publishes an issue to every confirmed subscriber.
// POST /v1/admin/newsletters - JSON or urlencoded form.
// Returns 303 See Other pointing at the issue. Retries with the same idempotency key
// receive the stored response byte for byte.
func (h *NewsletterHandler) PublishHandler(c *gin.Context) {
	user, ok := userHTTP.GetUser(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.PublishIssueRequest
	if err := c.ShouldBind(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	key, err := idempotencyDomain.ParseKey(req.IdempotencyKey)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := req.ToPublishInput()
	input.IdempotencyKey = key

	resp, err := h.newsletterUseCase.Publish(c.Request.Context(), user.ID, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	writeSavedResponse(c, resp)
}

// writeSavedResponse writes a stored response without touching its headers or body.
func writeSavedResponse(c *gin.Context, resp *idempotencyDomain.SavedResponse) {
	header := c.Writer.Header()
	for _, pair := range resp.Headers {
		header.Add(pair.Name, string(pair.Value))
	}
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if len(resp.Body) > 0 {
		_, _ = c.Writer.Write(resp.Body)
	}
}

// GetHandler returns an issue with the number of deliveries still queued.
// GET /v1/admin/newsletters/:id
func (h *NewsletterHandler) GetHandler(c *gin.Context) {
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid issue id: %w", err), h.logger)
		return
	}

	view, err := h.newsletterUseCase.Get(c.Request.Context(), issueID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapIssueViewToResponse(view))
}

// ListHandler returns published issues, newest first.
// GET /v1/admin/newsletters?offset=0&limit=20
func (h *NewsletterHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	issues, err := h.newsletterUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapIssuesToListResponse(issues))
}
