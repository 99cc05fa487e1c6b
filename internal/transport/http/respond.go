package http

import (
	"encoding/json"
	"net/http"

	"restaurant-tables/internal/domain"
)

// Every non-read operation answers with the uniform envelope: success
// flag, human-readable message, affected entity or null.
type tableResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Table   *domain.Table `json:"table"`
}

type orderResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

type billResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Bill    *domain.Bill `json:"bill"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps operation error kinds onto HTTP statuses. The envelope
// already says success=false; the status is a convenience for plain HTTP
// clients.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInconsistentState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
