package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

const (
	eventCRMStatusUpdate   = "CRM_STATUS_UPDATE"
	eventYCloudInboundText = "whatsapp.inbound_message.received"
)

// CRMStatusPayload body of POST /webhook/crm-status
type CRMStatusPayload struct {
	LeadID         string          `json:"lead_id"`
	PipelineStatus string          `json:"pipeline_status"`
	MortgageAmount json.RawMessage `json:"mortgage_amount"`
}

// amount accepts a JSON number or a numeric string; null, "" and 0 mean absent.
func (p CRMStatusPayload) amount() (*decimal.Decimal, error) {
	raw := strings.Trim(strings.TrimSpace(string(p.MortgageAmount)), `"`)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.Validationf("mortgage_amount %q is not a number", raw)
	}
	if d.IsZero() {
		return nil, nil
	}
	if d.IsNegative() {
		return nil, domain.Validationf("mortgage_amount must not be negative")
	}
	return &d, nil
}

type ycloudEvent struct {
	Type    string `json:"type"`
	Message struct {
		From            string          `json:"from"`
		Text            json.RawMessage `json:"text"`
		CustomerProfile struct {
			Name string `json:"name"`
		} `json:"customerProfile"`
	} `json:"whatsappInboundMessage"`
}

func (e ycloudEvent) text() string {
	var body struct {
		Body string `json:"body"`
	}
	if json.Unmarshal(e.Message.Text, &body) == nil && body.Body != "" {
		return body.Body
	}
	var plain string
	if json.Unmarshal(e.Message.Text, &plain) == nil {
		return plain
	}
	return ""
}

// WebhookService records every inbound webhook in webhook_logs and routes
// it to the pipeline or the verification flow.
type WebhookService struct {
	store        repository.Store
	pipeline     *StatusPipeline
	verification *VerificationService
	logger       *zap.Logger
}

func NewWebhookService(store repository.Store, pipeline *StatusPipeline, verification *VerificationService, logger *zap.Logger) *WebhookService {
	return &WebhookService{store: store, pipeline: pipeline, verification: verification, logger: logger}
}

// HandleCRMStatus applies a CRM status callback; clients are matched by
// crm_lead_id.
func (s *WebhookService) HandleCRMStatus(ctx context.Context, raw []byte) (*ProcessResult, error) {
	logID := s.record(ctx, domain.WebhookSourceCRM, eventCRMStatusUpdate, raw)

	res, err := s.crmStatus(ctx, raw)
	s.finish(ctx, logID, err)
	return res, err
}

func (s *WebhookService) crmStatus(ctx context.Context, raw []byte) (*ProcessResult, error) {
	var p CRMStatusPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, domain.Validationf("invalid payload: %v", err)
	}
	if strings.TrimSpace(p.LeadID) == "" {
		return nil, domain.Validationf("lead_id is required")
	}
	status, err := domain.ParseStatus(p.PipelineStatus)
	if err != nil {
		return nil, err
	}
	amount, err := p.amount()
	if err != nil {
		return nil, err
	}

	s.logger.Info("CRM webhook received", zap.String("lead_id", p.LeadID), zap.String("status", string(status)))
	return s.pipeline.Process(ctx, StatusUpdate{
		Ref:       domain.ClientByCRMLead(strings.TrimSpace(p.LeadID)),
		NewStatus: status,
		Amount:    amount,
	})
}

// HandleYCloud handles YCloud events. Only inbound texts are acted on;
// a text without a usable code is logged as an error but still answered
// with success so YCloud does not redeliver it.
func (s *WebhookService) HandleYCloud(ctx context.Context, raw []byte) error {
	var ev ycloudEvent
	decodeErr := json.Unmarshal(raw, &ev)
	eventType := ev.Type
	if eventType == "" {
		eventType = "UNKNOWN"
	}
	logID := s.record(ctx, domain.WebhookSourceYCloud, eventType, raw)
	if decodeErr != nil {
		err := domain.Validationf("invalid payload: %v", decodeErr)
		s.finish(ctx, logID, err)
		return err
	}

	if ev.Type != eventYCloudInboundText || ev.Message.From == "" {
		s.finish(ctx, logID, nil)
		return nil
	}

	_, err := s.verification.HandleInbound(ctx, InboundMessage{
		From:        ev.Message.From,
		Text:        ev.text(),
		ProfileName: ev.Message.CustomerProfile.Name,
	})
	s.finish(ctx, logID, err)
	if err != nil && errors.Is(err, domain.ErrValidation) {
		return nil
	}
	return err
}

func (s *WebhookService) record(ctx context.Context, source, eventType string, raw []byte) string {
	payload := json.RawMessage(raw)
	if !json.Valid(raw) {
		b, _ := json.Marshal(string(raw))
		payload = b
	}
	entry := &domain.WebhookLog{Source: source, EventType: eventType, Payload: payload}
	if err := s.store.WebhookLogs().CreateWebhookLog(ctx, entry); err != nil {
		s.logger.Error("Failed to record webhook", zap.String("source", source), zap.Error(err))
		return ""
	}
	return entry.LogID
}

func (s *WebhookService) finish(ctx context.Context, logID string, err error) {
	if logID == "" {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if ferr := s.store.WebhookLogs().FinishWebhookLog(ctx, logID, err == nil, msg); ferr != nil {
		s.logger.Error("Failed to finish webhook log", zap.String("log_id", logID), zap.Error(ferr))
	}
}

// ListLogs recent webhook deliveries, newest first
func (s *WebhookService) ListLogs(ctx context.Context, source string, limit int) ([]domain.WebhookLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	logs, err := s.store.WebhookLogs().ListWebhookLogs(ctx, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook logs: %w", err)
	}
	return logs, nil
}
