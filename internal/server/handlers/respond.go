package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/careloop/server/pkg/api"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: api.ErrorDetail{
			Message: message,
			Type:    "error",
			Code:    code,
		},
	})
}
