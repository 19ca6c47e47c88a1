package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

const defaultInactiveNudgeDays = 7

// Nudger reminds agents who have not submitted a client recently.
type Nudger struct {
	store  repository.Store
	config appconfig.Source
	sender MessageSender
	appURL string
	logger *zap.Logger
}

func NewNudger(store repository.Store, config appconfig.Source, sender MessageSender, appURL string, logger *zap.Logger) *Nudger {
	return &Nudger{store: store, config: config, sender: sender, appURL: appURL, logger: logger}
}

// Run sends one nudge per inactive agent and returns how many were sent.
func (n *Nudger) Run(ctx context.Context, now time.Time) (int, error) {
	days, err := appconfig.Int(ctx, n.config, appconfig.KeyInactiveNudgeDays, defaultInactiveNudgeDays)
	if err != nil {
		n.logger.Warn("Inactive nudge days unavailable, using default", zap.Error(err))
	}
	agents, err := n.store.Agents().ListInactiveAgents(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return 0, fmt.Errorf("failed to list inactive agents: %w", err)
	}

	sent := 0
	for _, a := range agents {
		body := fmt.Sprintf("Hi %s, it's been a while since your last referral. Know someone buying a home? Refer them on Rivo and earn your commission.", a.DisplayName())
		if n.appURL != "" {
			body += " " + n.appURL
		}
		if err := n.sender.SendText(ctx, a.Phone, body); err != nil {
			n.logger.Warn("Failed to send inactive nudge", zap.String("agent_id", a.AgentID), zap.Error(err))
			continue
		}
		sent++
	}
	n.logger.Info("Inactive nudges sent", zap.Int("sent", sent), zap.Int("inactive_days", days))
	return sent, nil
}
