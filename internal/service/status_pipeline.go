package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

// ProcessResult outcome of one status event
type ProcessResult struct {
	Transition Transition        `json:"transition"`
	Allocation domain.Allocation `json:"allocation"`
}

// StatusPipeline runs the tracker and the bonus engine in one transaction
// and dispatches facts once it committed.
type StatusPipeline struct {
	store      repository.Store
	tracker    *StatusTracker
	engine     *BonusEngine
	dispatcher FactDispatcher
	logger     *zap.Logger
}

func NewStatusPipeline(store repository.Store, tracker *StatusTracker, engine *BonusEngine, dispatcher FactDispatcher, logger *zap.Logger) *StatusPipeline {
	return &StatusPipeline{store: store, tracker: tracker, engine: engine, dispatcher: dispatcher, logger: logger}
}

func (p *StatusPipeline) Process(ctx context.Context, u StatusUpdate) (*ProcessResult, error) {
	var res ProcessResult
	err := p.store.WithinTx(ctx, func(tx repository.Store) error {
		tr, err := p.tracker.ApplyStatusUpdate(ctx, tx, u)
		if err != nil {
			return err
		}
		res.Transition = tr
		if !tr.EntersDisbursed() {
			return nil
		}
		res.Allocation, err = p.engine.OnDisbursal(ctx, tx, tr.Client)
		return err
	})
	if err != nil {
		p.logger.Warn("Status update rejected",
			zap.String("ref", u.Ref.String()),
			zap.String("status", string(u.NewStatus)),
			zap.Error(err),
		)
		return nil, err
	}

	emit(ctx, p.dispatcher, p.logger, allocationFacts(res.Allocation)...)
	return &res, nil
}

func allocationFacts(a domain.Allocation) []domain.Fact {
	var facts []domain.Fact
	if a.NewAgentBonus != nil {
		facts = append(facts, domain.NewBonusAwarded(a.NewAgentBonus))
	}
	if a.ReferrerBonus != nil {
		facts = append(facts, domain.NewBonusAwarded(a.ReferrerBonus))
	}
	if a.Milestone != nil {
		facts = append(facts, *a.Milestone)
	}
	return facts
}
