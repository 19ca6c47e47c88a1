package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

type AgentType string

const (
	AgentTypeREBroker       AgentType = "RE_BROKER"
	AgentTypeMortgageBroker AgentType = "MORTGAGE_BROKER"
	AgentTypeOther          AgentType = "OTHER"
)

func (t AgentType) Valid() bool {
	switch t {
	case "", AgentTypeREBroker, AgentTypeMortgageBroker, AgentTypeOther:
		return true
	}
	return false
}

// Agent a referral partner. Agents are never hard-deleted.
type Agent struct {
	AgentID                 string    `json:"id"`
	Name                    string    `json:"name"`
	Phone                   string    `json:"phone"`
	Email                   string    `json:"email"`
	AgentType               AgentType `json:"agent_type"`
	AgentTypeOther          string    `json:"agent_type_other"`
	RERANumber              string    `json:"rera_number"`
	AgentCode               string    `json:"agent_code"`
	ReferredBy              *string   `json:"referred_by"`
	DeviceToken             string    `json:"-"`
	IsWhatsAppBusiness      bool      `json:"is_whatsapp_business"`
	IsProfileComplete       bool      `json:"is_profile_complete"`
	HasCompletedFirstAction bool      `json:"has_completed_first_action"`
	IsActive                bool      `json:"is_active"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// RefreshProfileComplete must run before every save.
func (a *Agent) RefreshProfileComplete() {
	a.IsProfileComplete = a.Name != "" && a.AgentType != "" && a.Email != ""
}

// Reactivate clears the profile of a soft-deleted agent who verified again.
// Ledger rows and the agent code are kept.
func (a *Agent) Reactivate(profileName string) {
	a.IsActive = true
	a.Name = profileName
	a.Email = ""
	a.AgentType = ""
	a.AgentTypeOther = ""
	a.RERANumber = ""
	a.ReferredBy = nil
	a.HasCompletedFirstAction = false
	a.RefreshProfileComplete()
}

// DisplayName falls back to a generic label for agents without a name.
func (a *Agent) DisplayName() string {
	if strings.TrimSpace(a.Name) == "" {
		return "A Rivo Partner agent"
	}
	return a.Name
}

const agentCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewAgentCode returns a random RIVO-XXXX code. Callers retry on collision.
func NewAgentCode() string {
	b := make([]byte, 4)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(agentCodeAlphabet))))
		if err != nil {
			n = big.NewInt(int64(time.Now().UnixNano() % int64(len(agentCodeAlphabet))))
		}
		b[i] = agentCodeAlphabet[n.Int64()]
	}
	return "RIVO-" + string(b)
}

// ProfileUpdate partial PATCH of the editable profile fields
type ProfileUpdate struct {
	Name           *string    `json:"name"`
	Email          *string    `json:"email"`
	AgentType      *AgentType `json:"agent_type"`
	AgentTypeOther *string    `json:"agent_type_other"`
	RERANumber     *string    `json:"rera_number"`
}

// Apply validates and copies the set fields onto a.
func (u ProfileUpdate) Apply(a *Agent) error {
	if u.AgentType != nil && !u.AgentType.Valid() {
		return wrapValidation("agent_type must be one of RE_BROKER, MORTGAGE_BROKER, OTHER")
	}
	if u.Email != nil && *u.Email != "" && !strings.Contains(*u.Email, "@") {
		return wrapValidation("email is invalid")
	}
	if u.Name != nil {
		a.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		a.Email = strings.TrimSpace(*u.Email)
	}
	if u.AgentType != nil {
		a.AgentType = *u.AgentType
	}
	if u.AgentTypeOther != nil {
		a.AgentTypeOther = *u.AgentTypeOther
	}
	if u.RERANumber != nil {
		a.RERANumber = *u.RERANumber
	}
	a.RefreshProfileComplete()
	return nil
}
