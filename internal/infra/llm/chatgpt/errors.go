package chatgpt

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// APIError is returned when the API answers with a non 2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatgpt request failed: status=%d body=%s", e.StatusCode, e.Body)
}

// IsAuthError reports whether err is a rejected or missing credential.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// Classify wraps a client failure as authentication_error or service_error.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if IsAuthError(err) {
		return apperrors.Wrap(apperrors.CodeAuthentication, message, err)
	}
	return apperrors.Wrap(apperrors.CodeService, message, err)
}
