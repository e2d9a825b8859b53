package video

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"supportdesk-backend/internal/domain"
	"supportdesk-backend/internal/service/call"
	apperrors "supportdesk-backend/pkg/errors"
	"supportdesk-backend/pkg/response"
)

// Handler handles video consent handshake HTTP requests
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new video handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{
		callService: callService,
	}
}

// VideoRequestRequest represents a video call request
type VideoRequestRequest struct {
	Requester string `json:"requester" binding:"required,oneof=customer agent"`
}

// VideoResponseRequest represents the answer to a video call request
type VideoResponseRequest struct {
	Responder string `json:"responder" binding:"required,oneof=customer agent"`
	Accepted  *bool  `json:"accepted" binding:"required"`
}

// RequestVideo records a video call request on the conversation log
// POST /v1/conversations/:id/video-request
func (h *Handler) RequestVideo(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	var req VideoRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	msg, err := h.callService.RequestVideo(c.Request.Context(), conversationID, domain.MessageSender(req.Requester))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, msg)
}

// RespondVideo records acceptance or decline of a video call request
// POST /v1/conversations/:id/video-response
func (h *Handler) RespondVideo(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	var req VideoResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	msg, err := h.callService.RespondVideo(c.Request.Context(), conversationID, domain.MessageSender(req.Responder), *req.Accepted)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, msg)
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
