package conversation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supportdesk-backend/internal/domain"
	"supportdesk-backend/internal/service/registry"
	apperrors "supportdesk-backend/pkg/errors"
	"supportdesk-backend/pkg/response"
)

// Handler handles conversation lifecycle HTTP requests
type Handler struct {
	registryService *registry.Service
}

// NewHandler creates a new conversation handler
func NewHandler(registryService *registry.Service) *Handler {
	return &Handler{
		registryService: registryService,
	}
}

// CreateConversationRequest represents the widget's start-conversation call
type CreateConversationRequest struct {
	TenantID       string  `json:"tenant_id" binding:"required,uuid"`
	CustomerName   string  `json:"customer_name"`
	CustomerEmail  *string `json:"customer_email,omitempty" binding:"omitempty,email"`
	InitialMessage string  `json:"initial_message"`
}

// SetStatusRequest represents a status transition request
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE INACTIVE ENDED"`
	Actor  string `json:"actor" binding:"omitempty,oneof=customer agent"`
}

// Create opens a new conversation in WAITING status
// POST /v1/conversations
func (h *Handler) Create(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		response.ValidationError(c, "Invalid tenant ID")
		return
	}

	conv, err := h.registryService.Create(c.Request.Context(), &domain.ConversationCreate{
		TenantID:       tenantID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, conv)
}

// Get returns one conversation
// GET /v1/conversations/:id
func (h *Handler) Get(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	conv, err := h.registryService.Get(c.Request.Context(), conversationID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, conv)
}

// Heartbeat refreshes the conversation's liveness timestamp
// POST /v1/conversations/:id/heartbeat
func (h *Handler) Heartbeat(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	if err := h.registryService.Heartbeat(c.Request.Context(), conversationID); err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"conversation_id": conversationID})
}

// MarkInactive handles the widget's page-unload beacon
// POST /v1/conversations/:id/inactive
func (h *Handler) MarkInactive(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	if err := h.registryService.MarkInactiveOnDisconnect(c.Request.Context(), conversationID); err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"conversation_id": conversationID})
}

// SetStatus transitions a conversation to ACTIVE, INACTIVE or ENDED
// PUT /v1/conversations/:id/status
func (h *Handler) SetStatus(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	actor := domain.MessageSender(req.Actor)
	if actor == "" {
		actor = domain.SenderCustomer
	}

	conv, err := h.registryService.SetStatus(c.Request.Context(), conversationID, domain.ConversationStatus(req.Status), actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, conv)
}

func parseConversationID(c *gin.Context) (uuid.UUID, bool) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return uuid.Nil, false
	}
	return conversationID, true
}

func respondDomainError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = apperrors.NotFoundError("Conversation")
	case errors.Is(err, domain.ErrNoAgentsAvailable):
		appErr = apperrors.NoAgentsAvailableError()
	case errors.Is(err, domain.ErrInvalidTransition):
		appErr = apperrors.InvalidTransitionError("Status transition not allowed")
	case errors.Is(err, domain.ErrInvalidArgument):
		appErr = apperrors.InvalidInputError("Invalid request")
	default:
		appErr = apperrors.InternalError("Request failed")
	}
	response.AppError(c, appErr)
}
