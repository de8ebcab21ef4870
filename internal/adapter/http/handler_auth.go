package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/certigo/certigo/internal/usecase"
)

// AuthHandler serves internal user login.
type AuthHandler struct {
	auth *usecase.Auth
}

func NewAuthHandler(auth *usecase.Auth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/auth/login", h.Login).Methods("POST")
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if body.Username == "" || body.Password == "" {
		BadRequest(w, "username and password are required")
		return
	}

	result, err := h.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusOK, "login successful", loginResponse{
		Token:    result.Token,
		Username: result.Operator.Username,
		Role:     string(result.Operator.Role),
	})
}
