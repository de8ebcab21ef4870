package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/service/jwtauth"
	"github.com/certigo/certigo/internal/usecase"
)

// InternalHandler serves the operator panel endpoints.
type InternalHandler struct {
	lifecycle      *usecase.Lifecycle
	auth           *usecase.Auth
	authMw         *AuthMiddleware
	maxUploadBytes int64
}

func NewInternalHandler(lifecycle *usecase.Lifecycle, auth *usecase.Auth, authMw *AuthMiddleware, maxUploadBytes int64) *InternalHandler {
	return &InternalHandler{
		lifecycle:      lifecycle,
		auth:           auth,
		authMw:         authMw,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *InternalHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/interno/solicitudes", h.authMw.RequireAuth(h.ListRequests)).Methods("GET")
	router.HandleFunc("/api/v1/interno/solicitudes/{id}", h.authMw.RequireAuth(h.GetRequest)).Methods("GET")
	router.HandleFunc("/api/v1/interno/solicitudes/{id}/historial", h.authMw.RequireAuth(h.GetHistory)).Methods("GET")
	router.HandleFunc("/api/v1/interno/solicitudes/{id}/certificado", h.authMw.RequireAuth(h.PublishCertificate)).Methods("POST")
	router.HandleFunc("/api/v1/interno/solicitudes/{id}/token", h.authMw.RequireAuth(h.RegenerateToken)).Methods("POST")
	router.HandleFunc("/api/v1/interno/usuarios", h.authMw.RequireAdmin(h.CreateOperator)).Methods("POST")
	router.HandleFunc("/api/v1/interno/usuarios", h.authMw.RequireAdmin(h.ListOperators)).Methods("GET")
	router.HandleFunc("/api/v1/interno/usuarios/{id}/estado", h.authMw.RequireAdmin(h.SetOperatorActive)).Methods("PUT")
}

// actor rebuilds the acting operator from the session claims.
func actor(claims *jwtauth.Claims) *domain.Operator {
	return &domain.Operator{
		ID:             claims.OperatorID,
		Username:       claims.Username,
		Role:           claims.Role,
		JurisdictionID: claims.JurisdictionID,
		Active:         true,
	}
}

func (h *InternalHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())

	var filter domain.RequestFilter
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := domain.Status(strings.ToUpper(v))
		if !status.Valid() {
			BadRequest(w, "unknown status")
			return
		}
		filter.Status = &status
	}
	if v := q.Get("jurisdiction_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(w, "invalid jurisdiction_id")
			return
		}
		filter.JurisdictionID = &id
	}
	if v := q.Get("dni"); v != "" {
		filter.SubjectID = &v
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	page, err := h.lifecycle.List(r.Context(), claims.Scope(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	Success(w, http.StatusOK, "solicitudes", page)
}

func (h *InternalHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())
	requestID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	req, err := h.lifecycle.GetRequest(r.Context(), requestID, claims.Scope())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	Success(w, http.StatusOK, "solicitud", req)
}

func (h *InternalHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())
	requestID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	history, err := h.lifecycle.GetHistory(r.Context(), requestID, claims.Scope())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	Success(w, http.StatusOK, "audit trail", history)
}

// PublishCertificate accepts the signed PDF as multipart form data under
// the "certificado" field and publishes it.
func (h *InternalHandler) PublishCertificate(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())
	requestID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		BadRequest(w, "file too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("certificado")
	if err != nil {
		BadRequest(w, "certificado file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "application/pdf" {
		BadRequest(w, "certificado must be a PDF")
		return
	}

	token, err := h.lifecycle.PublishCertificate(r.Context(), requestID, file, header.Size, contentType, actor(claims))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusOK, "certificate published", map[string]string{
		"download_token": token,
	})
}

func (h *InternalHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())
	requestID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	token, err := h.lifecycle.RegenerateDownloadToken(r.Context(), requestID, actor(claims))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusOK, "download token regenerated", map[string]string{
		"download_token": token,
	})
}

type createOperatorBody struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	JurisdictionID *int   `json:"jurisdiction_id"`
}

func (h *InternalHandler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())

	var body createOperatorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	op, err := h.auth.CreateOperator(r.Context(), actor(claims), body.Username, body.Password,
		domain.Role(strings.ToUpper(body.Role)), body.JurisdictionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusCreated, "internal user created", op)
}

func (h *InternalHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())

	operators, err := h.auth.ListOperators(r.Context(), actor(claims))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusOK, "internal users", operators)
}

type setActiveBody struct {
	Active bool `json:"active"`
}

func (h *InternalHandler) SetOperatorActive(w http.ResponseWriter, r *http.Request) {
	claims := OperatorClaims(r.Context())
	operatorID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, "invalid operator id")
		return
	}

	var body setActiveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.auth.SetOperatorActive(r.Context(), actor(claims), operatorID, body.Active); err != nil {
		writeDomainError(w, err)
		return
	}
	Success(w, http.StatusOK, "internal user state changed", nil)
}
