package handlers

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in every error body
const (
	CodeInvalidInput      = "invalid_input"
	CodeNotFound          = "not_found"
	CodeDtypeError        = "dtype_error"
	CodeInferenceError    = "inference_error"
	CodeAlreadyExists     = "already_exists"
	CodeAlreadyReconciled = "already_reconciled"
	CodeRateLimited       = "rate_limited"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeInternal          = "internal"
)

// ErrorResponse 모든 실패 응답의 형태
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondJSON writes data as a JSON body
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an ErrorResponse
func RespondError(w http.ResponseWriter, status int, message, code string) {
	RespondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
