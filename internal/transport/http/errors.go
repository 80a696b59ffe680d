package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorBody is the error shape shared by every endpoint and the gateway.
type ErrorBody struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// WriteError writes a JSON error body with the standard shape.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeErrorBody(w, ErrorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	})
}

// WriteValidationError writes a 400 with a field-level detail map.
func WriteValidationError(w http.ResponseWriter, fields map[string]string) {
	writeErrorBody(w, ErrorBody{
		Timestamp:        time.Now().UTC(),
		Status:           http.StatusBadRequest,
		Error:            http.StatusText(http.StatusBadRequest),
		Message:          "validation failed",
		ValidationErrors: fields,
	})
}

func writeErrorBody(w http.ResponseWriter, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)

	payload, err := json.Marshal(body)
	if err != nil {
		_, _ = w.Write([]byte(`{"status":500,"error":"Internal Server Error","message":"internal error"}`))
		return
	}
	_, _ = w.Write(payload)
}
