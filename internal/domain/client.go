package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const ChannelPartnerPWA = "PARTNER_PWA"

// Client a mortgage lead submitted by an agent
type Client struct {
	ClientID               string           `json:"id"`
	ClientName             string           `json:"client_name"`
	ClientPhone            string           `json:"client_phone"`
	ExpectedMortgageAmount decimal.Decimal  `json:"expected_mortgage_amount"`
	EstimatedCommission    *decimal.Decimal `json:"estimated_commission"`
	CommissionAmount       *decimal.Decimal `json:"commission_amount"`
	Status                 ClientStatus     `json:"status"`
	SourceAgentID          *string          `json:"-"`
	Channel                string           `json:"channel"`
	CRMLeadID              *string          `json:"-"`
	ConsentGiven           bool             `json:"-"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// FillEstimatedCommission sets expected * percent / 100 when no estimate is
// stored yet. An existing estimate is never overwritten.
func (c *Client) FillEstimatedCommission(percent decimal.Decimal) {
	if c.EstimatedCommission != nil || c.ExpectedMortgageAmount.IsZero() {
		return
	}
	est := c.ExpectedMortgageAmount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
	c.EstimatedCommission = &est
}

// ApplyMortgageAmount refreshes the expected amount and drops the estimate
// so the next FillEstimatedCommission recomputes it.
func (c *Client) ApplyMortgageAmount(amount decimal.Decimal) {
	c.ExpectedMortgageAmount = amount
	c.EstimatedCommission = nil
}

// ClientSubmission POST /clients/ingest body
type ClientSubmission struct {
	ClientName             string          `json:"client_name"`
	ClientPhone            string          `json:"client_phone"`
	ExpectedMortgageAmount decimal.Decimal `json:"expected_mortgage_amount"`
	Consent                bool            `json:"consent"`
}

// Validate checks field presence only; phone rules need the store.
func (s ClientSubmission) Validate() error {
	if !s.Consent {
		return wrapValidation("client consent is required")
	}
	if s.ClientName == "" || len(s.ClientName) > 255 {
		return wrapValidation("client_name is required")
	}
	if DigitsOnly(s.ClientPhone) == "" || len(s.ClientPhone) > 20 {
		return wrapValidation("client_phone is invalid")
	}
	if !s.ExpectedMortgageAmount.IsPositive() {
		return wrapValidation("expected_mortgage_amount must be positive")
	}
	return nil
}

// ClientRefKind how an inbound event identifies a client
type ClientRefKind string

const (
	ClientRefID        ClientRefKind = "id"
	ClientRefCRMLeadID ClientRefKind = "crm_lead_id"
)

// ClientRef primary id or external CRM correlation id
type ClientRef struct {
	Kind  ClientRefKind
	Value string
}

func ClientByID(id string) ClientRef        { return ClientRef{Kind: ClientRefID, Value: id} }
func ClientByCRMLead(lead string) ClientRef { return ClientRef{Kind: ClientRefCRMLeadID, Value: lead} }

func (r ClientRef) String() string { return string(r.Kind) + "=" + r.Value }

// ClientFilter list query options; empty fields match everything
type ClientFilter struct {
	Search string
	Status ClientStatus
}
