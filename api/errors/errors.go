package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	mserrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/tracing"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, mserrors.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mserrors.ErrConnectionFailed):
		return http.StatusBadGateway
	case errors.Is(err, mserrors.ErrAccountNotFound),
		errors.Is(err, mserrors.ErrFolderNotFound),
		errors.Is(err, repository.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, mserrors.ErrSyncInProgress),
		errors.Is(err, repository.ErrAccountAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}
	var verr *mserrors.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	return resp
}

// Respond traces err on the span and writes the mapped response.
func Respond(c *gin.Context, span opentracing.Span, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		tracing.TraceErr(span, err)
	}
	c.AbortWithStatusJSON(status, NewErrorResponse(err))
}

// BadRequest answers malformed input that never reached a service.
func BadRequest(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
