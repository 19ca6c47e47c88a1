package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

var defaultCommissionPercent = decimal.RequireFromString("0.45")

// StatusUpdate one inbound status event
type StatusUpdate struct {
	Ref       domain.ClientRef
	NewStatus domain.ClientStatus
	Amount    *decimal.Decimal
}

// Transition the status delta produced by one update
type Transition struct {
	Old    domain.ClientStatus `json:"old_status"`
	New    domain.ClientStatus `json:"new_status"`
	Client *domain.Client      `json:"client"`
}

// EntersDisbursed is true exactly when the bonus engine must run.
func (t Transition) EntersDisbursed() bool {
	return t.Old != domain.StatusDisbursed && t.New == domain.StatusDisbursed
}

func (t Transition) Changed() bool { return t.Old != t.New }

// StatusTracker owns the client status state machine.
type StatusTracker struct {
	config appconfig.Source
	logger *zap.Logger
}

func NewStatusTracker(config appconfig.Source, logger *zap.Logger) *StatusTracker {
	return &StatusTracker{config: config, logger: logger}
}

// ApplyStatusUpdate locks the client row and applies u. It must run inside
// store.WithinTx so the lock is held until the bonus engine is done.
func (t *StatusTracker) ApplyStatusUpdate(ctx context.Context, store repository.Store, u StatusUpdate) (Transition, error) {
	if !u.NewStatus.Valid() {
		return Transition{}, domain.Validationf("invalid status %q", u.NewStatus)
	}

	client, err := store.Clients().LockClient(ctx, u.Ref)
	if err != nil {
		return Transition{}, err
	}
	tr := Transition{Old: client.Status, New: u.NewStatus, Client: client}

	if u.NewStatus == client.Status {
		if client.Status.Terminal() || u.Amount == nil {
			return tr, nil
		}
		t.applyAmount(ctx, client, *u.Amount)
		if err := store.Clients().UpdateClient(ctx, client); err != nil {
			return Transition{}, fmt.Errorf("failed to update client amount: %w", err)
		}
		return tr, nil
	}

	if client.Status.Terminal() {
		return Transition{}, fmt.Errorf("client %s is %s, cannot move to %s: %w",
			client.ClientID, client.Status, u.NewStatus, domain.ErrInvalidTransition)
	}

	client.Status = u.NewStatus
	if u.Amount != nil {
		t.applyAmount(ctx, client, *u.Amount)
		if u.NewStatus == domain.StatusDisbursed {
			commission := *u.Amount
			client.CommissionAmount = &commission
		}
	}
	if err := store.Clients().UpdateClient(ctx, client); err != nil {
		return Transition{}, fmt.Errorf("failed to update client status: %w", err)
	}

	t.logger.Info("Client status changed",
		zap.String("client_id", client.ClientID),
		zap.String("old_status", string(tr.Old)),
		zap.String("new_status", string(tr.New)),
	)
	return tr, nil
}

func (t *StatusTracker) applyAmount(ctx context.Context, client *domain.Client, amount decimal.Decimal) {
	client.ApplyMortgageAmount(amount)
	pct, err := appconfig.Decimal(ctx, t.config, appconfig.KeyCommissionMinPercent, defaultCommissionPercent)
	if err != nil {
		t.logger.Warn("Commission percent unavailable, using default", zap.Error(err))
	}
	client.FillEstimatedCommission(pct)
}
