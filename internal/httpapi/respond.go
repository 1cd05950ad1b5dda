package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ElenaBezro/go-shop-api/internal/auth"
	"github.com/ElenaBezro/go-shop-api/internal/domain"
	"github.com/ElenaBezro/go-shop-api/internal/service"
)

// apiError is the single-message error body; validation and batched
// stock failures use apiErrors with one entry per problem.
type apiError struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type apiErrors struct {
	Status    int       `json:"status"`
	Messages  []string  `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, apiError{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func respondErrors(w http.ResponseWriter, status int, messages []string) {
	respondJSON(w, status, apiErrors{
		Status:    status,
		Messages:  messages,
		Timestamp: time.Now().UTC(),
	})
}

// respondServiceError maps domain failures onto the 4xx taxonomy; every
// unrecognized error becomes a bare 500 with no business detail.
func respondServiceError(w http.ResponseWriter, err error) {
	var stockErr *service.StockError
	if errors.As(err, &stockErr) {
		respondErrors(w, http.StatusBadRequest, stockErr.Messages)
		return
	}

	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrDuplicateCartItem),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrOwnershipMismatch),
		errors.Is(err, service.ErrTerminalStatusChange),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, auth.ErrEmailExists):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
