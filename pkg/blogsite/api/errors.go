package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/materialize-demo/pkg/blogsite"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps service errors to HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, blogsite.ErrPageNotFound), errors.Is(err, blogsite.ErrImageNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, blogsite.ErrSlugInUse):
		return http.StatusConflict, "slug_in_use"
	case errors.Is(err, blogsite.ErrInvalidPageType),
		errors.Is(err, blogsite.ErrInvalidParent),
		errors.Is(err, blogsite.ErrInvalidBlock),
		errors.Is(err, blogsite.ErrValidation),
		errors.Is(err, blogsite.ErrUnsupportedImage),
		errors.Is(err, blogsite.ErrStorageBackendNotFound):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError logs err and writes it as a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, code := statusFor(err)
	requestID := RequestIDFromContext(r.Context())

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error(msg, "request_id", requestID, "error", err)
		message = "An internal server error occurred"
	} else {
		slog.Warn(msg, "request_id", requestID, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: code, Message: message, RequestID: requestID}})
}

// badRequest writes a 400 response for malformed input.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{
		Code:      "bad_request",
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	}})
}
