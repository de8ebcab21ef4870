package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/usecase"
)

// PublicHandler serves the citizen-facing endpoints.
type PublicHandler struct {
	lifecycle *usecase.Lifecycle
	citizen   *CitizenMiddleware
	log       *logrus.Logger
}

func NewPublicHandler(lifecycle *usecase.Lifecycle, citizen *CitizenMiddleware, log *logrus.Logger) *PublicHandler {
	if log == nil {
		log = logrus.New()
	}
	return &PublicHandler{lifecycle: lifecycle, citizen: citizen, log: log}
}

func (h *PublicHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/solicitudes", h.CreateRequest).Methods("POST")
	router.HandleFunc("/api/v1/solicitudes/{id}/otp", h.ValidateOTP).Methods("POST")
	router.HandleFunc("/api/v1/solicitudes/{id}/pago", h.citizen.RequireSession(h.CreatePaymentOrder)).Methods("POST")
	router.HandleFunc("/api/v1/solicitudes/{nroTramite}", h.citizen.RequireSession(h.GetStatus)).Methods("GET")
	router.HandleFunc("/api/v1/certificados/{token}", h.DownloadCertificate).Methods("GET")
}

type createRequestBody struct {
	SubjectID      string `json:"dni"`
	Email          string `json:"email"`
	JurisdictionID int    `json:"jurisdiction_id"`
}

type createRequestResponse struct {
	ID         int64  `json:"id"`
	NroTramite string `json:"nro_tramite"`
	Status     string `json:"status"`
}

// CreateRequest starts a new solicitud. The response carries the trámite
// number; the verification code travels by email only.
func (h *PublicHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	req, err := h.lifecycle.CreateRequest(r.Context(), body.SubjectID, body.Email, body.JurisdictionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusCreated, "solicitud created", createRequestResponse{
		ID:         req.ID,
		NroTramite: req.NroTramite,
		Status:     string(req.Status),
	})
}

type validateOTPBody struct {
	Code string `json:"code"`
}

// ValidateOTP verifies the emailed code and returns the citizen session
// token.
func (h *PublicHandler) ValidateOTP(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	var body validateOTPBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if body.Code == "" {
		BadRequest(w, "code is required")
		return
	}

	session, err := h.lifecycle.ValidateOTP(r.Context(), requestID, body.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusOK, "email verified", session)
}

// CreatePaymentOrder registers the fee checkout for the caller's own
// solicitud.
func (h *PublicHandler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "id")
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	order, err := h.lifecycle.CreatePaymentOrder(r.Context(), requestID, CitizenTramite(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusCreated, "payment order created", order)
}

// GetStatus returns the citizen view of a solicitud. The session must be
// bound to the trámite it asks about.
func (h *PublicHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	nroTramite := mux.Vars(r)["nroTramite"]
	if nroTramite != CitizenTramite(r.Context()) {
		NotFound(w, "solicitud not found")
		return
	}

	view, err := h.lifecycle.GetStatus(r.Context(), nroTramite)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	Success(w, http.StatusOK, "solicitud status", view)
}

// DownloadCertificate streams the PDF behind a download token. The token
// itself is the credential; no session is required.
func (h *PublicHandler) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	rc, req, err := h.lifecycle.DownloadCertificate(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.NroTramite+`.pdf"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).WithField("nro_tramite", req.NroTramite).Warn("certificate download interrupted")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
