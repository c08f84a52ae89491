package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Body is the JSON shape of every API response. RequestID is the leave
// request id, never the correlation id, which travels in X-Request-ID.
type Body struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Code      string `json:"code,omitempty"`
	Fields    any    `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

func Fail(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Body{Message: message, Code: code})
}

func FailWithFields(w http.ResponseWriter, status int, code, message string, fields any) {
	WriteJSON(w, status, Body{Message: message, Code: code, Fields: fields})
}
