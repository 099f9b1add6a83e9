package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// HTTPError carries the status and page message for a failed request.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromAnswerError maps an answer pipeline failure onto a status and the
// banner shown in the output area.
func fromAnswerError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeInvalidInput:
		return NewHTTPError(http.StatusBadRequest, code, err.Error(), err)
	case apperrors.CodeAuthentication:
		return NewHTTPError(http.StatusBadGateway, code, "The AI provider rejected the API key: "+err.Error(), err)
	case apperrors.CodeService:
		return NewHTTPError(http.StatusBadGateway, code, "The analysis could not be generated: "+err.Error(), err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "Something went wrong: "+err.Error(), err)
	}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
