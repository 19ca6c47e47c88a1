package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/export"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
	"github.com/rivoaiteam/rivo-partners/internal/service"
)

const (
	defaultLogLimit = 50
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AdminHandler operator routes behind X-Admin-Token
type AdminHandler struct {
	store    repository.Store
	pipeline *service.StatusPipeline
	webhooks *service.WebhookService
	logger   *zap.Logger
}

func NewAdminHandler(store repository.Store, pipeline *service.StatusPipeline, webhooks *service.WebhookService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, pipeline: pipeline, webhooks: webhooks, logger: logger}
}

type statusUpdateRequest struct {
	Status         string           `json:"status"`
	MortgageAmount *decimal.Decimal `json:"mortgage_amount"`
}

// UpdateClientStatus POST /admin/api/v1/clients/{id}/status
func (h *AdminHandler) UpdateClientStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	amount := req.MortgageAmount
	if amount != nil {
		if amount.IsNegative() {
			writeJSON(w, http.StatusBadRequest, Fail("mortgage_amount must not be negative"))
			return
		}
		if amount.IsZero() {
			amount = nil
		}
	}

	res, err := h.pipeline.Process(r.Context(), service.StatusUpdate{
		Ref:       domain.ClientByID(chi.URLParam(r, "id")),
		NewStatus: status,
		Amount:    amount,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ExportBonuses GET /admin/api/v1/bonuses/export
func (h *AdminHandler) ExportBonuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	referral, err := h.store.Ledger().ListAllBonuses(ctx, domain.BonusKindReferrer)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	newAgent, err := h.store.Ledger().ListAllBonuses(ctx, domain.BonusKindNewAgent)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	data, err := export.BonusLedgerWorkbook(referral, newAgent)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	filename := fmt.Sprintf("rivo-bonuses-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// WebhookLogs GET /admin/api/v1/webhook-logs?source=&limit=
func (h *AdminHandler) WebhookLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logs, err := h.webhooks.ListLogs(r.Context(), strings.ToUpper(q.Get("source")), parseInt(q.Get("limit"), defaultLogLimit))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if logs == nil {
		logs = []domain.WebhookLog{}
	}
	writeJSON(w, http.StatusOK, Ok(logs))
}
