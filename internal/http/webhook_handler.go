package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/service"
)

// WebhookHandler inbound CRM and YCloud callbacks
type WebhookHandler struct {
	webhooks *service.WebhookService
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks *service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// CRMStatus POST /api/v1/webhook/crm-status
func (h *WebhookHandler) CRMStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r, maxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("unreadable body"))
		return
	}
	res, err := h.webhooks.HandleCRMStatus(r.Context(), raw)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// YCloud POST /api/v1/webhook/ycloud
func (h *WebhookHandler) YCloud(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r, maxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("unreadable body"))
		return
	}
	if err := h.webhooks.HandleYCloud(r.Context(), raw); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"received": true}))
}
