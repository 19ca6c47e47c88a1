package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/service"
)

// AuthHandler WhatsApp sign-in and referral landing
type AuthHandler struct {
	verification *service.VerificationService
	agents       *service.AgentService
	logger       *zap.Logger
}

func NewAuthHandler(verification *service.VerificationService, agents *service.AgentService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{verification: verification, agents: agents, logger: logger}
}

type initSessionRequest struct {
	ReferralCode       string `json:"referral_code"`
	IsWhatsAppBusiness bool   `json:"is_whatsapp_business"`
}

// InitWhatsApp POST /api/v1/auth/whatsapp/init
func (h *AuthHandler) InitWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req initSessionRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	res, err := h.verification.InitSession(r.Context(), req.ReferralCode, req.IsWhatsAppBusiness)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// CheckWhatsApp GET /api/v1/auth/whatsapp/check/{code}
func (h *AuthHandler) CheckWhatsApp(w http.ResponseWriter, r *http.Request) {
	res, err := h.verification.CheckSession(r.Context(), strings.TrimSpace(chi.URLParam(r, "code")))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ResolveReferral GET /api/v1/auth/referral/{code}
func (h *AuthHandler) ResolveReferral(w http.ResponseWriter, r *http.Request) {
	name, err := h.agents.ResolveReferralCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"agent_name": name}))
}
