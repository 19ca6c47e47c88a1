package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

// TextSender is satisfied by *YCloudClient.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// WhatsAppNotifier tells people about facts that concern them: the referred
// client, the referrer of a new agent, and the agent who earned a bonus.
type WhatsAppNotifier struct {
	sender TextSender
	agents repository.AgentsRepo
	config appconfig.Source
	logger *zap.Logger
}

func NewWhatsAppNotifier(sender TextSender, agents repository.AgentsRepo, config appconfig.Source, logger *zap.Logger) *WhatsAppNotifier {
	return &WhatsAppNotifier{sender: sender, agents: agents, config: config, logger: logger}
}

func (n *WhatsAppNotifier) Dispatch(ctx context.Context, fact domain.Fact) error {
	switch f := fact.(type) {
	case domain.ClientReferred:
		tmpl, err := appconfig.String(ctx, n.config, appconfig.KeyClientWhatsAppMsg, appconfig.Defaults[appconfig.KeyClientWhatsAppMsg].(string))
		if err != nil {
			n.logger.Warn("Client message template unavailable, using default", zap.Error(err))
		}
		body := strings.NewReplacer("{agent_name}", f.AgentName, "{client_name}", f.ClientName).Replace(tmpl)
		return n.sender.SendText(ctx, f.ClientPhone, body)

	case domain.AgentSignedUp:
		return n.toAgent(ctx, f.ReferrerID, fmt.Sprintf("%s just joined Rivo with your referral link. You earn a bonus on their disbursed deals.", f.AgentName))

	case domain.BonusAwarded:
		what := "new agent bonus"
		if f.Role == domain.BonusKindReferrer {
			what = "referral bonus"
		}
		return n.toAgent(ctx, f.BeneficiaryID, fmt.Sprintf("Congratulations! You earned a %s of AED %s (deal #%d).", what, f.Amount.StringFixed(2), f.DealNumber))

	case domain.MilestoneReached:
		return n.toAgent(ctx, f.AgentID, fmt.Sprintf("Milestone reached: %d disbursed deals with Rivo. Keep going!", f.Count))
	}
	return nil
}

func (n *WhatsAppNotifier) toAgent(ctx context.Context, agentID, body string) error {
	agent, err := n.agents.GetAgent(ctx, agentID)
	if err != nil {
		return fmt.Errorf("failed to load agent %s: %w", agentID, err)
	}
	if !agent.IsActive {
		return nil
	}
	return n.sender.SendText(ctx, agent.Phone, body)
}
