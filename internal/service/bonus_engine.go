package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

var (
	DefaultNewAgentSchedule = amounts(1000, 750, 500)
	DefaultReferrerSchedule = amounts(500, 500, 1000)
)

func amounts(vals ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

// BonusEngine allocates ledger rows when a client is disbursed. Schedules are
// read from config on every call.
type BonusEngine struct {
	config appconfig.Source
	logger *zap.Logger
}

func NewBonusEngine(config appconfig.Source, logger *zap.Logger) *BonusEngine {
	return &BonusEngine{config: config, logger: logger}
}

// OnDisbursal awards the submitting agent's new-agent bonus and, when the
// agent was referred, the referrer's network bonus. A row that already
// exists is treated as awarded and yields nothing.
func (e *BonusEngine) OnDisbursal(ctx context.Context, store repository.Store, client *domain.Client) (domain.Allocation, error) {
	var alloc domain.Allocation
	if client.SourceAgentID == nil {
		return alloc, nil
	}
	agent, err := store.Agents().GetAgent(ctx, *client.SourceAgentID)
	if err != nil {
		return alloc, fmt.Errorf("failed to load submitting agent: %w", err)
	}

	schedule := e.schedule(ctx, appconfig.KeyNewAgentBonuses, DefaultNewAgentSchedule)
	alloc.NewAgentBonus, err = e.award(ctx, store, domain.BonusKindNewAgent, repository.BonusClaim{
		BeneficiaryID:      agent.AgentID,
		TriggeredByAgentID: agent.AgentID,
		ClientID:           client.ClientID,
	}, schedule)
	if err != nil {
		return domain.Allocation{}, err
	}

	if agent.ReferredBy != nil {
		schedule := e.schedule(ctx, appconfig.KeyReferrerBonuses, DefaultReferrerSchedule)
		alloc.ReferrerBonus, err = e.award(ctx, store, domain.BonusKindReferrer, repository.BonusClaim{
			BeneficiaryID:      *agent.ReferredBy,
			TriggeredByAgentID: agent.AgentID,
			ClientID:           client.ClientID,
		}, schedule)
		if err != nil {
			return domain.Allocation{}, err
		}
	}

	alloc.Milestone, err = e.milestone(ctx, store, agent.AgentID)
	if err != nil {
		return domain.Allocation{}, err
	}
	return alloc, nil
}

func (e *BonusEngine) award(ctx context.Context, store repository.Store, kind domain.BonusKind, claim repository.BonusClaim, schedule []decimal.Decimal) (*domain.Bonus, error) {
	b, err := store.Ledger().AwardNext(ctx, kind, claim, schedule)
	switch {
	case errors.Is(err, domain.ErrConstraintConflict):
		e.logger.Info("Bonus already awarded",
			zap.String("kind", string(kind)),
			zap.String("beneficiary_id", claim.BeneficiaryID),
			zap.String("client_id", claim.ClientID),
		)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to award %s bonus: %w", kind, err)
	case b == nil:
		e.logger.Debug("Bonus schedule exhausted",
			zap.String("kind", string(kind)),
			zap.String("beneficiary_id", claim.BeneficiaryID),
		)
		return nil, nil
	}
	e.logger.Info("Bonus awarded",
		zap.String("kind", string(kind)),
		zap.String("beneficiary_id", b.BeneficiaryID),
		zap.Int("deal_number", b.DealNumber),
		zap.String("amount", b.Amount.StringFixed(2)),
	)
	return b, nil
}

func (e *BonusEngine) schedule(ctx context.Context, key string, def []decimal.Decimal) []decimal.Decimal {
	s, err := appconfig.Schedule(ctx, e.config, key, def)
	if err != nil {
		e.logger.Error("Bonus schedule unavailable, using default", zap.String("key", key), zap.Error(err))
	}
	return s
}

func (e *BonusEngine) milestone(ctx context.Context, store repository.Store, agentID string) (*domain.MilestoneReached, error) {
	thresholds, err := appconfig.IntSet(ctx, e.config, appconfig.KeyMilestoneThresholds)
	if err != nil {
		e.logger.Warn("Milestone thresholds unavailable", zap.Error(err))
	}
	if len(thresholds) == 0 {
		return nil, nil
	}
	n, err := store.Clients().CountDisbursed(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count disbursals: %w", err)
	}
	if !thresholds[n] {
		return nil, nil
	}
	return &domain.MilestoneReached{AgentID: agentID, Count: n}, nil
}
