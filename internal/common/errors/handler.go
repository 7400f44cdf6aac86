// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler writes API errors as JSON responses with standardized bodies.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// errorBody is the wire shape of every failure response. No stack traces are
// ever exposed to the caller.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

// Write normalizes err to an APIError, logs it, and writes the JSON body with
// the mapped status code.
func (h *ErrorHandler) Write(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := AsAPIError(err)

	fields := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"code":   string(apiErr.Code),
		"status": apiErr.HTTPStatus(),
	}
	if apiErr.Details != "" {
		fields["details"] = apiErr.Details
	}

	if apiErr.HTTPStatus() >= http.StatusInternalServerError {
		h.logger.Error(apiErr.Message, fields)
	} else {
		h.logger.Warn(apiErr.Message, fields)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   apiErr.Message,
		Details: apiErr.Details,
		Code:    string(apiErr.Code),
	})
}
