package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "supportdesk-backend/pkg/errors"
)

// Envelope is the JSON shape of every API response. The widget and the
// agent console poll these endpoints in a loop, so the shape stays
// identical across success and failure: clients branch on success,
// then read either data or error.code.
type Envelope struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    Meta         `json:"meta"`
}

// ErrorDetail carries a machine-readable code (e.g. "CLAIM_CONFLICT")
// plus a human-readable message. Codes are the contract; messages may
// change.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta stamps every response with the server time and the request id
// assigned by the logging middleware. Pollers use the timestamp as a
// clock reference so sync cursors never depend on client clocks.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Success sends data wrapped in the envelope.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Envelope{
		Success: true,
		Data:    data,
		Meta:    meta(c),
	})
}

// Error sends an error envelope with an explicit status and code.
func Error(c *gin.Context, statusCode int, errorCode, errorMessage string) {
	c.JSON(statusCode, Envelope{
		Success: false,
		Error: &ErrorDetail{
			Code:    errorCode,
			Message: errorMessage,
		},
		Meta: meta(c),
	})
}

// AppError sends a typed application error, using its embedded status
// and code.
func AppError(c *gin.Context, err *apperrors.AppError) {
	Error(c, err.StatusCode, string(err.Code), err.Message)
}

// ValidationError sends a binding/validation failure (400).
func ValidationError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, string(apperrors.ErrCodeValidation), message)
}

// Unauthorized sends an authentication failure (401).
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, string(apperrors.ErrCodeUnauthorized), message)
}

// InternalError sends an unexpected server failure (500).
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, string(apperrors.ErrCodeInternal), message)
}

func meta(c *gin.Context) Meta {
	m := Meta{Timestamp: time.Now().UTC()}
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			m.RequestID = id
		}
	}
	return m
}
