package square

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

// RemoteAPIError is a non-success answer from Square. Body is kept verbatim
// so operators can see Square's own error payload.
type RemoteAPIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("square %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// AsRemoteAPIError extracts the Square failure from err's chain, if any.
func AsRemoteAPIError(err error) (*RemoteAPIError, bool) {
	var remote *RemoteAPIError
	if errors.As(err, &remote) {
		return remote, true
	}
	return nil, false
}

func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		body := ""
		if inner := apiErr.Unwrap(); inner != nil {
			body = strings.TrimSpace(inner.Error())
		}
		return remoteError(op, apiErr.StatusCode, body)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
}

func remoteError(op string, status int, body string) error {
	remote := &RemoteAPIError{Op: op, StatusCode: status, Body: body}
	code := domainCodeForStatus(status)
	for _, sqErr := range extractSquareErrors(body) {
		if sqErr == nil {
			continue
		}
		if sqErr.Category == sq.ErrorCategoryAuthenticationError {
			code = pkgerrors.CodeUnauthorized
			break
		}
	}
	return pkgerrors.Wrap(code, remote, fmt.Sprintf("square %s failed", op))
}

func extractSquareErrors(raw string) []*sq.Error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
