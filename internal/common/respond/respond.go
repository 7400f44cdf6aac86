// Package respond writes the success envelope shared by every endpoint:
// a message, a status marker and the operation payload at the top level.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes the standard envelope. Payload entries are merged into the
// top level next to message and status.
func Success(w http.ResponseWriter, statusCode int, message string, payload map[string]interface{}) {
	body := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["message"] = message
	body["status"] = "success"
	JSON(w, statusCode, body)
}
