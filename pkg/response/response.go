package response

import (
	"errors"
	"net/http"
	"time"

	"governance-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReplayedHeader marks a response served from a stored idempotent result.
const ReplayedHeader = "Idempotent-Replayed"

// requestIDKey mirrors the key the request ID middleware stores under.
const requestIDKey = "request_id"

// Meta is carried by every envelope.
type Meta struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta
}

type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Meta
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Data: data, Meta: meta(c)})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Data: data, Meta: meta(c)})
}

// Replayed answers a retried request with the outcome stored for it.
func Replayed(c *gin.Context, data interface{}) {
	c.Header(ReplayedHeader, "true")
	OK(c, data)
}

// Error writes the envelope for err. Anything that is not an AppError is
// reported as SYS_000. Internal causes stay off the wire and are attached
// to the gin context for the request logger.
func Error(c *gin.Context, err error) {
	appErr := apperror.InternalError(err)
	appErr.Code = "SYS_000"
	errors.As(err, &appErr)

	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		Meta:      meta(c),
	})
}

func meta(c *gin.Context) Meta {
	id := c.GetString(requestIDKey)
	if id == "" {
		id = uuid.NewString()
	}
	return Meta{RequestID: id, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}
