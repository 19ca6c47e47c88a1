package httpapi

import (
	"net/http"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/service"
)

const qrSize = 256

// AgentHandler routes of the signed-in agent
type AgentHandler struct {
	agents *service.AgentService
	logger *zap.Logger
	now    func() time.Time
}

func NewAgentHandler(agents *service.AgentService, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, logger: logger, now: time.Now}
}

// meResponse profile plus the home screen numbers
type meResponse struct {
	*domain.Agent
	*domain.Earnings
	ReferralLink string `json:"referral_link"`
}

func (h *AgentHandler) me(r *http.Request, agent *domain.Agent) (*meResponse, error) {
	earnings, err := h.agents.Earnings(r.Context(), agent, h.now().UTC())
	if err != nil {
		return nil, err
	}
	return &meResponse{
		Agent:        agent,
		Earnings:     earnings,
		ReferralLink: h.agents.ReferralLink(r.Context(), agent),
	}, nil
}

// Me GET /api/v1/agents/me
func (h *AgentHandler) Me(w http.ResponseWriter, r *http.Request) {
	res, err := h.me(r, agentFrom(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// UpdateMe PATCH /api/v1/agents/me
func (h *AgentHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var u domain.ProfileUpdate
	if err := readBodyJSON(r, maxBodyBytes, &u); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	agent, err := h.agents.UpdateProfile(r.Context(), agentFrom(r), u)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.logger.Info("Profile updated", zap.String("agent_id", agent.AgentID))
	res, err := h.me(r, agent)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// DeleteMe DELETE /api/v1/agents/me
func (h *AgentHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Deactivate(r.Context(), agentFrom(r)); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"message": "Account deleted."}))
}

// Logout POST /api/v1/agents/logout
func (h *AgentHandler) Logout(w http.ResponseWriter, r *http.Request) {
	agent := agentFrom(r)
	if err := h.agents.Logout(r.Context(), agent); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.logger.Info("Agent logged out", zap.String("agent_id", agent.AgentID))
	writeJSON(w, http.StatusOK, Ok(map[string]string{"message": "Logged out successfully."}))
}

// Network GET /api/v1/agents/network
func (h *AgentHandler) Network(w http.ResponseWriter, r *http.Request) {
	res, err := h.agents.Network(r.Context(), agentFrom(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ReferralQR GET /api/v1/agents/referral-qr, a PNG of the join link
func (h *AgentHandler) ReferralQR(w http.ResponseWriter, r *http.Request) {
	link := h.agents.ReferralLink(r.Context(), agentFrom(r))
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Bonuses GET /api/v1/bonuses
func (h *AgentHandler) Bonuses(w http.ResponseWriter, r *http.Request) {
	res, err := h.agents.Bonuses(r.Context(), agentFrom(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
