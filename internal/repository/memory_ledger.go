package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

type MemoryLedgerRepo struct {
	st   *memState
	inTx bool
}

func (r *MemoryLedgerRepo) AwardNext(_ context.Context, kind domain.BonusKind, claim BonusClaim, schedule []decimal.Decimal) (*domain.Bonus, error) {
	if _, err := ledgerFor(kind); err != nil {
		return nil, err
	}
	if claim.BeneficiaryID == "" || claim.ClientID == "" {
		return nil, domain.Validationf("beneficiary_id and client_id are required")
	}
	if len(schedule) == 0 {
		return nil, nil
	}

	defer r.st.lock(r.inTx)()
	d := r.st.data

	key := counterKey{beneficiaryID: claim.BeneficiaryID, kind: kind}
	last, ok := d.counters[key]
	if !ok {
		for _, b := range d.bonuses[kind] {
			if b.BeneficiaryID == claim.BeneficiaryID && b.DealNumber > last {
				last = b.DealNumber
			}
		}
	}
	if last >= len(schedule) {
		d.counters[key] = last
		return nil, nil
	}

	deal := last + 1
	for _, b := range d.bonuses[kind] {
		if b.BeneficiaryID == claim.BeneficiaryID && (b.ClientID == claim.ClientID || b.DealNumber == deal) {
			return nil, fmt.Errorf("%s bonus for %s on client %s: %w", kind, claim.BeneficiaryID, claim.ClientID, domain.ErrConstraintConflict)
		}
	}

	triggeredBy := claim.TriggeredByAgentID
	if kind == domain.BonusKindNewAgent {
		triggeredBy = claim.BeneficiaryID
	}
	b := domain.Bonus{
		BonusID:            uuid.NewString(),
		Kind:               kind,
		BeneficiaryID:      claim.BeneficiaryID,
		TriggeredByAgentID: triggeredBy,
		ClientID:           claim.ClientID,
		DealNumber:         deal,
		Amount:             schedule[deal-1].Round(2),
		CreatedAt:          now(),
	}
	d.bonuses[kind] = append(d.bonuses[kind], b)
	d.counters[key] = deal
	return &b, nil
}

func (r *MemoryLedgerRepo) ListBonuses(_ context.Context, kind domain.BonusKind, beneficiaryID string) ([]domain.Bonus, error) {
	return r.list(kind, func(b domain.Bonus) bool { return b.BeneficiaryID == beneficiaryID })
}

func (r *MemoryLedgerRepo) ListAllBonuses(_ context.Context, kind domain.BonusKind) ([]domain.Bonus, error) {
	return r.list(kind, func(domain.Bonus) bool { return true })
}

func (r *MemoryLedgerRepo) list(kind domain.BonusKind, match func(domain.Bonus) bool) ([]domain.Bonus, error) {
	if _, err := ledgerFor(kind); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var out []domain.Bonus
	for _, b := range r.st.data.bonuses[kind] {
		if !match(b) {
			continue
		}
		if a, ok := r.st.data.agents[b.TriggeredByAgentID]; ok {
			b.TriggeredByAgentName = a.Name
		}
		if c, ok := r.st.data.clients[b.ClientID]; ok {
			b.ClientName = c.ClientName
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BeneficiaryID != out[j].BeneficiaryID {
			return out[i].BeneficiaryID < out[j].BeneficiaryID
		}
		return out[i].DealNumber < out[j].DealNumber
	})
	return out, nil
}
