package http

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	codeInvalidJSON        = "INVALID_JSON"
	codeValidation         = "VALIDATION_ERROR"
	codeDuplicateUser      = "DUPLICATE_USER"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeUserNotFound       = "USER_NOT_FOUND"
	codeTokenInvalid       = "TOKEN_INVALID"
	codeStaleCredentials   = "STALE_CREDENTIALS"
	codeInternal           = "INTERNAL"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, common.ErrDuplicateUser):
		return http.StatusConflict, codeDuplicateUser
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials
	case errors.Is(err, common.ErrUserNotFound):
		return http.StatusNotFound, codeUserNotFound
	case errors.Is(err, common.ErrTokenInvalid):
		return http.StatusUnauthorized, codeTokenInvalid
	case errors.Is(err, common.ErrStaleCredentials):
		return http.StatusUnauthorized, codeStaleCredentials
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed",
			"request_id", chimiddleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
