package domain

import "github.com/shopspring/decimal"

// Fact an outbound notification emitted after commit
type Fact interface {
	FactType() string
}

type BonusAwarded struct {
	BeneficiaryID string          `json:"beneficiary_id"`
	Role          BonusKind       `json:"role"`
	DealNumber    int             `json:"deal_number"`
	Amount        decimal.Decimal `json:"amount"`
	ClientID      string          `json:"client_id"`
}

func (BonusAwarded) FactType() string { return "bonus_awarded" }

// NewBonusAwarded builds the fact for a freshly inserted ledger row.
func NewBonusAwarded(b *Bonus) BonusAwarded {
	return BonusAwarded{
		BeneficiaryID: b.BeneficiaryID,
		Role:          b.Kind,
		DealNumber:    b.DealNumber,
		Amount:        b.Amount,
		ClientID:      b.ClientID,
	}
}

type MilestoneReached struct {
	AgentID string `json:"agent_id"`
	Count   int    `json:"count"`
}

func (MilestoneReached) FactType() string { return "milestone_reached" }

// AgentSignedUp a referred agent completed verification
type AgentSignedUp struct {
	ReferrerID string `json:"referrer_id"`
	AgentID    string `json:"agent_id"`
	AgentName  string `json:"agent_name"`
}

func (AgentSignedUp) FactType() string { return "agent_signed_up" }

// ClientReferred a client was submitted; the client is told who referred them
type ClientReferred struct {
	ClientID    string `json:"client_id"`
	ClientPhone string `json:"client_phone"`
	ClientName  string `json:"client_name"`
	AgentID     string `json:"agent_id"`
	AgentName   string `json:"agent_name"`
}

func (ClientReferred) FactType() string { return "client_referred" }
