package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/schoolwear/pkg/errors"
)

// downstreamError covers the error bodies the storefront backend is known to
// send: the `{status, mensagem}` envelope (Portuguese or English keys) and the
// `{error: {code, message}}` shape.
type downstreamError struct {
	Mensagem string `json:"mensagem"`
	Message  string `json:"message"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ServerMessage extracts the human-readable message from an error body.
// It returns "" when the body carries none.
func ServerMessage(body []byte) string {
	var d downstreamError
	if json.Unmarshal(body, &d) != nil {
		return ""
	}
	switch {
	case d.Mensagem != "":
		return d.Mensagem
	case d.Message != "":
		return d.Message
	case d.Error != nil:
		return d.Error.Message
	}
	return ""
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError whose message is the server's own text when available.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	msg := ServerMessage(bodyBytes)
	if msg == "" {
		msg = strings.TrimSpace(string(bodyBytes))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return MapStatusError(resp.StatusCode, msg, serviceName)
}

// MapStatusError translates a downstream HTTP status and message into an
// AppError that preserves the error semantics.
func MapStatusError(status int, message, serviceName string) error {
	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: message, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status == http.StatusGone:
		return apperrors.Gone(message)
	case status == http.StatusUnprocessableEntity:
		return apperrors.Rejected(message)
	case status >= 500:
		return apperrors.Unavailable(message, fmt.Errorf("%s returned status %d", serviceName, status))
	default:
		return &apperrors.AppError{
			Code:    "DOWNSTREAM_ERROR",
			Message: message,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
