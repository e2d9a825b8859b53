package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supportdesk-backend/internal/domain"
	syncsvc "supportdesk-backend/internal/service/sync"
	apperrors "supportdesk-backend/pkg/errors"
	"supportdesk-backend/pkg/response"
)

// Handler handles message append and sync HTTP requests
type Handler struct {
	syncService *syncsvc.Service
}

// NewHandler creates a new chat handler
func NewHandler(syncService *syncsvc.Service) *Handler {
	return &Handler{
		syncService: syncService,
	}
}

// SendMessageRequest represents a message append request
type SendMessageRequest struct {
	Sender  string `json:"sender" binding:"required,oneof=customer agent"`
	Content string `json:"content" binding:"required"`
}

// SyncQuery represents the incremental sync cursor. Since is RFC3339;
// omitted or empty means the full transcript.
type SyncQuery struct {
	Since string `form:"since"`
}

// SendMessage appends a message to a conversation
// POST /v1/conversations/:id/messages
func (h *Handler) SendMessage(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	output, err := h.syncService.Append(c.Request.Context(), &syncsvc.AppendInput{
		ConversationID: conversationID,
		Sender:         domain.MessageSender(req.Sender),
		Content:        req.Content,
		Type:           domain.MessageTypeText,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, output.Message)
}

// SyncMessages returns messages newer than the since cursor
// GET /v1/conversations/:id/messages?since=2025-06-01T12:00:00Z
func (h *Handler) SyncMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	var query SyncQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var since time.Time
	if query.Since != "" {
		since, err = time.Parse(time.RFC3339Nano, query.Since)
		if err != nil {
			response.ValidationError(c, "Invalid since timestamp, expected RFC3339")
			return
		}
	}

	output, err := h.syncService.SyncSince(c.Request.Context(), &syncsvc.SyncSinceInput{
		ConversationID: conversationID,
		Since:          since,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"messages":  output.Messages,
		"status":    output.Status,
		"synced_at": output.SyncedAt,
	})
}

func respondDomainError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = apperrors.NotFoundError("Conversation")
	case errors.Is(err, domain.ErrConversationEnded):
		appErr = apperrors.ConversationEndedError()
	case errors.Is(err, domain.ErrInvalidArgument):
		appErr = apperrors.InvalidInputError("Invalid request")
	default:
		appErr = apperrors.InternalError("Request failed")
	}
	response.AppError(c, appErr)
}
