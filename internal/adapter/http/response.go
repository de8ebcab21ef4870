package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/usecase"
)

// Envelope is the uniform response body of the API.
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, status bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, true, message, data)
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, false, message, nil)
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// writeDomainError maps business errors to their HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrJurisdictionNotFound),
		errors.Is(err, domain.ErrOperatorNotFound):
		NotFound(w, err.Error())

	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, usecase.ErrPaymentOrderExists):
		Conflict(w, err.Error())

	case errors.Is(err, domain.ErrJurisdictionMismatch):
		Forbidden(w, err.Error())

	case errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrOperatorInactive),
		errors.Is(err, domain.ErrOTPIncorrect),
		errors.Is(err, domain.ErrOTPExpired),
		errors.Is(err, domain.ErrOTPExhausted):
		Unauthorized(w, err.Error())

	case errors.Is(err, domain.ErrInvalidSubjectID),
		errors.Is(err, domain.ErrInvalidEmail):
		BadRequest(w, err.Error())

	default:
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			BadRequest(w, domainErr.Error())
			return
		}
		InternalServerError(w, "internal server error")
	}
}
