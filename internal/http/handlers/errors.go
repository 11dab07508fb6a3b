package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
	"github.com/tbourn/go-complaints-backend/internal/services"
)

// Error codes. Clients branch on these, never on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeReplyLimit       = "reply_limit"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// errorMapping ties a service sentinel to its HTTP representation.
type errorMapping struct {
	err    error
	status int
	code   string
	msg    string
}

// errorTable is checked in order with errors.Is. Validation errors are
// handled separately because their message comes from the error itself.
var errorTable = []errorMapping{
	{services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid credentials"},
	{services.ErrInvalidToken, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized: Invalid token"},
	{services.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized: User not found"},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "Forbidden: You do not have permission to access this resource"},
	{services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound, "User not found"},
	{services.ErrComplaintNotFound, http.StatusNotFound, ErrCodeNotFound, "Complaint not found"},
	{services.ErrDuplicateUsername, http.StatusConflict, ErrCodeConflict, "Username already exists"},
	{services.ErrAlreadyRated, http.StatusConflict, ErrCodeConflict, "Complaint has already been rated"},
	{services.ErrInvalidState, http.StatusConflict, ErrCodeConflict, "Operation not allowed in the complaint's current status"},
	{services.ErrReplyLimit, http.StatusConflict, ErrCodeReplyLimit, "Too many consecutive replies; please wait for an administrator to respond"},
	{services.ErrStale, http.StatusConflict, ErrCodeConflict, "Complaint was modified concurrently; reload and retry"},
}

// classify maps a service error to status, code and a client-safe message.
// Anything unknown is a 500 with a generic message.
func classify(err error) (int, string, string) {
	if errors.Is(err, services.ErrValidation) {
		return http.StatusBadRequest, ErrCodeBadRequest, services.ValidationMessage(err)
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.msg
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
}

// failErr writes the envelope for a service error. The cause of a 500 is
// logged but never sent to the client.
func failErr(c *gin.Context, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).Msg("request failed")
	}
	fail(c, status, code, msg)
}

// failErrMsg is failErr with a message override for one sentinel, used where
// an endpoint has a more specific wording than the shared table.
func failErrMsg(c *gin.Context, err, target error, msg string) {
	if errors.Is(err, target) {
		status, code, _ := classify(err)
		fail(c, status, code, msg)
		return
	}
	failErr(c, err)
}
