package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusKind which ledger a bonus row lives in
type BonusKind string

const (
	BonusKindNewAgent BonusKind = "NEW_AGENT"
	BonusKindReferrer BonusKind = "REFERRER"
)

// Bonus one ledger row. For NEW_AGENT rows the beneficiary and the
// triggering agent are the same agent.
type Bonus struct {
	BonusID            string          `json:"id"`
	Kind               BonusKind       `json:"kind"`
	BeneficiaryID      string          `json:"beneficiary_id"`
	TriggeredByAgentID string          `json:"triggered_by_agent_id"`
	ClientID           string          `json:"client_id"`
	DealNumber         int             `json:"deal_number"`
	Amount             decimal.Decimal `json:"amount"`
	CreatedAt          time.Time       `json:"created_at"`

	// populated by list queries for display
	TriggeredByAgentName string `json:"triggered_by_agent_name,omitempty"`
	ClientName           string `json:"client_name,omitempty"`
}

// Allocation what one disbursal produced
type Allocation struct {
	NewAgentBonus *Bonus            `json:"new_agent_bonus,omitempty"`
	ReferrerBonus *Bonus            `json:"referrer_bonus,omitempty"`
	Milestone     *MilestoneReached `json:"milestone,omitempty"`
}

func (a Allocation) Empty() bool {
	return a.NewAgentBonus == nil && a.ReferrerBonus == nil && a.Milestone == nil
}

// BonusSummary aggregate over one ledger for one beneficiary
type BonusSummary struct {
	TotalEarned  decimal.Decimal `json:"total_earned"`
	BonusesCount int             `json:"bonuses_count"`
	MaxBonuses   int             `json:"max_bonuses"`
	Completed    bool            `json:"completed"`
	Bonuses      []Bonus         `json:"bonuses"`
}

// NewBonusSummary totals rows against a schedule of length maxBonuses.
func NewBonusSummary(rows []Bonus, maxBonuses int) BonusSummary {
	total := decimal.Zero
	for _, b := range rows {
		total = total.Add(b.Amount)
	}
	if rows == nil {
		rows = []Bonus{}
	}
	return BonusSummary{
		TotalEarned:  total,
		BonusesCount: len(rows),
		MaxBonuses:   maxBonuses,
		Completed:    len(rows) >= maxBonuses,
		Bonuses:      rows,
	}
}

// Earnings headline numbers on the agent home screen
type Earnings struct {
	TotalEarned           decimal.Decimal `json:"total_earned"`
	PendingAmount         decimal.Decimal `json:"pending_amount"`
	DisbursedCount        int             `json:"disbursed_count"`
	ThisMonthEarned       decimal.Decimal `json:"this_month_earned"`
	ReferralBonusesEarned decimal.Decimal `json:"referral_bonuses_earned"`
	NewAgentBonusesEarned decimal.Decimal `json:"new_agent_bonuses_earned"`
	NetworkDisbursalCount int             `json:"network_disbursal_count"`
}

// NetworkAgent one referred agent as seen by the referrer
type NetworkAgent struct {
	AgentID        string          `json:"id"`
	Name           string          `json:"name"`
	AgentCode      string          `json:"agent_code"`
	JoinedAt       time.Time       `json:"joined_at"`
	DisbursedCount int             `json:"disbursed_count"`
	BonusEarned    decimal.Decimal `json:"bonus_earned"`
}
