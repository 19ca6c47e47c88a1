package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// FactDispatcher delivers outbound facts. Callers dispatch only after the
// unit of work committed.
type FactDispatcher interface {
	Dispatch(ctx context.Context, fact domain.Fact) error
}

// MessageSender sends a plain WhatsApp text.
type MessageSender interface {
	SendText(ctx context.Context, to, body string) error
}

// LeadStatus CRM view of one lead
type LeadStatus struct {
	Status         domain.ClientStatus
	MortgageAmount *decimal.Decimal
}

// LeadStatusFetcher asks the CRM for a lead's pipeline status.
type LeadStatusFetcher interface {
	FetchLeadStatus(ctx context.Context, leadID string) (*LeadStatus, error)
}

// emit dispatches facts in order; failures are logged and never returned.
func emit(ctx context.Context, d FactDispatcher, logger *zap.Logger, facts ...domain.Fact) {
	if d == nil {
		return
	}
	for _, f := range facts {
		if err := d.Dispatch(ctx, f); err != nil {
			logger.Warn("Failed to dispatch fact", zap.String("type", f.FactType()), zap.Error(err))
		}
	}
}

// sendText is best effort; the caller's work is already committed.
func sendText(ctx context.Context, s MessageSender, logger *zap.Logger, to, body string) {
	if s == nil || to == "" {
		return
	}
	if err := s.SendText(ctx, to, body); err != nil {
		logger.Warn("Failed to send WhatsApp message", zap.String("to", to), zap.Error(err))
	}
}
