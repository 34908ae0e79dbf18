package handler

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Message       string `json:"message"`
}

// writeError sends the JSON error envelope with a short status text.
func writeError(w http.ResponseWriter, status int, statusText string) {
	writeJSON(w, status, errorBody{StatusCode: status, StatusMessage: statusText, Message: statusText})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
