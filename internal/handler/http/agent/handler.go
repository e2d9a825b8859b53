package agent

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supportdesk-backend/internal/domain"
	"supportdesk-backend/internal/service/registry"
	apperrors "supportdesk-backend/pkg/errors"
	"supportdesk-backend/pkg/response"
)

// PresenceStore tracks agent online state for the claim eligibility
// view. Degraded Redis makes presence pessimistic, never fails the API.
type PresenceStore interface {
	SetOnline(ctx context.Context, tenantID, agentID uuid.UUID) error
	SetOffline(ctx context.Context, tenantID, agentID uuid.UUID) error
	Refresh(ctx context.Context, agentID uuid.UUID) error
	ListOnline(ctx context.Context, tenantID uuid.UUID) ([]domain.AgentPresence, error)
}

// Handler handles agent console HTTP requests. All routes assume the
// auth middleware has placed agent_id and tenant_id in the context.
type Handler struct {
	registryService *registry.Service
	presence        PresenceStore
}

// NewHandler creates a new agent handler
func NewHandler(registryService *registry.Service, presence PresenceStore) *Handler {
	return &Handler{
		registryService: registryService,
		presence:        presence,
	}
}

// ClaimRequest represents an agent's attempt to take a waiting conversation
type ClaimRequest struct {
	ConversationID string `json:"conversation_id" binding:"required,uuid"`
}

// DeclineRequest represents an agent declining a waiting conversation
type DeclineRequest struct {
	ConversationID string `json:"conversation_id" binding:"required,uuid"`
}

// PresenceRequest represents an online/offline toggle
type PresenceRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// ListQuery represents queue listing parameters
type ListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=WAITING ACTIVE INACTIVE ENDED"`
	Limit  int    `form:"limit"`
}

// ListConversations returns the agent console's queue views. With a
// status filter it lists the tenant's conversations in that status;
// without one it lists the agent's own assigned conversations.
// GET /v1/agent/conversations?status=WAITING
func (h *Handler) ListConversations(c *gin.Context) {
	agentID, tenantID, ok := identityFromContext(c)
	if !ok {
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if query.Status == "" {
		conversations, err := h.registryService.AgentConversations(c.Request.Context(), agentID, query.Limit)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		response.Success(c, http.StatusOK, conversations)
		return
	}

	entries, err := h.registryService.Queue(c.Request.Context(), tenantID, domain.ConversationStatus(query.Status), query.Limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}

// Claim atomically assigns a waiting conversation to the calling agent
// POST /v1/agent/conversations/claim
func (h *Handler) Claim(c *gin.Context) {
	agentID, _, ok := identityFromContext(c)
	if !ok {
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	conv, err := h.registryService.Claim(c.Request.Context(), conversationID, agentID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, conv)
}

// Decline ends a waiting conversation without claiming it
// POST /v1/agent/conversations/decline
func (h *Handler) Decline(c *gin.Context) {
	if _, _, ok := identityFromContext(c); !ok {
		return
	}

	var req DeclineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	conv, err := h.registryService.Decline(c.Request.Context(), conversationID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, conv)
}

// SetPresence marks the calling agent online or offline
// POST /v1/agent/presence
func (h *Handler) SetPresence(c *gin.Context) {
	agentID, tenantID, ok := identityFromContext(c)
	if !ok {
		return
	}

	var req PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var err error
	if *req.Online {
		err = h.presence.SetOnline(c.Request.Context(), tenantID, agentID)
	} else {
		err = h.presence.SetOffline(c.Request.Context(), tenantID, agentID)
	}
	if err != nil {
		response.AppError(c, apperrors.ServiceUnavailableError("Presence store unavailable"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"agent_id": agentID, "online": *req.Online})
}

// RefreshPresence extends the calling agent's presence TTL
// POST /v1/agent/presence/refresh
func (h *Handler) RefreshPresence(c *gin.Context) {
	agentID, _, ok := identityFromContext(c)
	if !ok {
		return
	}

	if err := h.presence.Refresh(c.Request.Context(), agentID); err != nil {
		response.AppError(c, apperrors.ServiceUnavailableError("Presence store unavailable"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"agent_id": agentID})
}

// ListOnlineAgents returns the agent ids currently online for a tenant
// GET /v1/tenants/:id/agents/online
func (h *Handler) ListOnlineAgents(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid tenant ID")
		return
	}

	agents, err := h.presence.ListOnline(c.Request.Context(), tenantID)
	if err != nil {
		response.AppError(c, apperrors.ServiceUnavailableError("Presence store unavailable"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"agents": agents, "count": len(agents)})
}

func identityFromContext(c *gin.Context) (agentID, tenantID uuid.UUID, ok bool) {
	agentVal, exists := c.Get("agent_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, uuid.Nil, false
	}
	agentID, valid := agentVal.(uuid.UUID)
	if !valid {
		response.InternalError(c, "Invalid agent identity")
		return uuid.Nil, uuid.Nil, false
	}

	tenantVal, exists := c.Get("tenant_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, uuid.Nil, false
	}
	tenantID, valid = tenantVal.(uuid.UUID)
	if !valid {
		response.InternalError(c, "Invalid tenant identity")
		return uuid.Nil, uuid.Nil, false
	}

	return agentID, tenantID, true
}

func respondDomainError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = apperrors.NotFoundError("Conversation")
	case errors.Is(err, domain.ErrClaimConflict):
		appErr = apperrors.ClaimConflictError()
	case errors.Is(err, domain.ErrNotWaiting):
		appErr = apperrors.NotWaitingError()
	case errors.Is(err, domain.ErrAgentOffline):
		appErr = apperrors.AgentOfflineError()
	case errors.Is(err, domain.ErrInvalidArgument):
		appErr = apperrors.InvalidInputError("Invalid request")
	default:
		appErr = apperrors.InternalError("Request failed")
	}
	response.AppError(c, appErr)
}
