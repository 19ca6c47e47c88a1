package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

const (
	maxReferralDepth     = 64
	agentCodeAttempts    = 10
	defaultReferrerLabel = "A Rivo Partner"
)

// AgentService agent accounts, referral links and earnings views
type AgentService struct {
	store      repository.Store
	config     appconfig.Source
	dispatcher FactDispatcher
	logger     *zap.Logger
}

func NewAgentService(store repository.Store, config appconfig.Source, dispatcher FactDispatcher, logger *zap.Logger) *AgentService {
	return &AgentService{store: store, config: config, dispatcher: dispatcher, logger: logger}
}

// Verify finds or creates the agent behind a verified WhatsApp number and
// issues a fresh device token.
func (s *AgentService) Verify(ctx context.Context, ev domain.VerificationEvent) (*domain.Agent, bool, error) {
	var (
		agent   *domain.Agent
		created bool
		facts   []domain.Fact
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		agent, created, facts, err = s.verifyTx(ctx, tx, ev)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	emit(ctx, s.dispatcher, s.logger, facts...)
	return agent, created, nil
}

func (s *AgentService) verifyTx(ctx context.Context, tx repository.Store, ev domain.VerificationEvent) (*domain.Agent, bool, []domain.Fact, error) {
	phone := domain.NormalizePhone(ev.Phone)
	if phone == "" {
		return nil, false, nil, domain.Validationf("phone is required")
	}

	created := false
	agent, err := tx.Agents().GetAgentByPhone(ctx, phone)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		agent, err = s.createAgent(ctx, tx, phone, ev)
		if err != nil {
			return nil, false, nil, err
		}
		created = true
	case err != nil:
		return nil, false, nil, err
	case !agent.IsActive:
		s.logger.Info("Reactivating agent", zap.String("agent_id", agent.AgentID))
		agent.Reactivate(ev.ProfileName)
		agent.IsWhatsAppBusiness = ev.IsWhatsAppBusiness
	}

	agent.DeviceToken = uuid.NewString()
	if err := tx.Agents().UpdateAgent(ctx, agent); err != nil {
		return nil, false, nil, fmt.Errorf("failed to issue device token: %w", err)
	}

	var facts []domain.Fact
	if code := strings.TrimSpace(ev.ReferralCode); code != "" && agent.ReferredBy == nil {
		referrer, err := tx.Agents().GetAgentByCode(ctx, strings.ToUpper(code))
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Warn("Unknown referral code ignored", zap.String("code", code), zap.String("agent_id", agent.AgentID))
		case err != nil:
			return nil, false, nil, err
		default:
			linked, err := s.link(ctx, tx, agent, referrer)
			switch {
			case errors.Is(err, domain.ErrValidation):
				s.logger.Warn("Referral link rejected", zap.String("agent_id", agent.AgentID), zap.Error(err))
			case err != nil:
				return nil, false, nil, err
			case linked:
				facts = append(facts, domain.AgentSignedUp{
					ReferrerID: referrer.AgentID,
					AgentID:    agent.AgentID,
					AgentName:  agent.DisplayName(),
				})
			}
		}
	}
	return agent, created, facts, nil
}

func (s *AgentService) createAgent(ctx context.Context, tx repository.Store, phone string, ev domain.VerificationEvent) (*domain.Agent, error) {
	code, err := s.freeAgentCode(ctx, tx)
	if err != nil {
		return nil, err
	}
	agent := &domain.Agent{
		Name:               strings.TrimSpace(ev.ProfileName),
		Phone:              phone,
		AgentCode:          code,
		IsWhatsAppBusiness: ev.IsWhatsAppBusiness,
		IsActive:           true,
	}
	if err := tx.Agents().CreateAgent(ctx, agent); err != nil {
		return nil, err
	}
	s.logger.Info("Agent created", zap.String("agent_id", agent.AgentID), zap.String("agent_code", agent.AgentCode))
	return agent, nil
}

// freeAgentCode checks before inserting; a unique violation would abort
// the surrounding Postgres transaction.
func (s *AgentService) freeAgentCode(ctx context.Context, tx repository.Store) (string, error) {
	for i := 0; i < agentCodeAttempts; i++ {
		code := domain.NewAgentCode()
		_, err := tx.Agents().GetAgentByCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free agent code after %d attempts: %w", agentCodeAttempts, domain.ErrConstraintConflict)
}

// SetReferrer links agentID under referrerID if it has no referrer yet.
func (s *AgentService) SetReferrer(ctx context.Context, agentID, referrerID string) (bool, error) {
	var (
		linked bool
		agent  *domain.Agent
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		agent, err = tx.Agents().GetAgent(ctx, agentID)
		if err != nil {
			return err
		}
		referrer, err := tx.Agents().GetAgent(ctx, referrerID)
		if err != nil {
			return err
		}
		linked, err = s.link(ctx, tx, agent, referrer)
		return err
	})
	if err != nil {
		return false, err
	}
	if linked {
		emit(ctx, s.dispatcher, s.logger, domain.AgentSignedUp{
			ReferrerID: referrerID,
			AgentID:    agentID,
			AgentName:  agent.DisplayName(),
		})
	}
	return linked, nil
}

// link sets referred_by at most once and refuses links that would close a
// cycle in the referral forest.
func (s *AgentService) link(ctx context.Context, tx repository.Store, agent, referrer *domain.Agent) (bool, error) {
	if agent.ReferredBy != nil {
		return false, nil
	}
	if agent.AgentID == referrer.AgentID {
		return false, domain.Validationf("agent cannot refer themselves")
	}

	cur := referrer
	for depth := 0; cur.ReferredBy != nil; depth++ {
		if depth >= maxReferralDepth {
			return false, domain.Validationf("referral chain deeper than %d", maxReferralDepth)
		}
		if *cur.ReferredBy == agent.AgentID {
			return false, domain.Validationf("referral would create a cycle")
		}
		next, err := tx.Agents().GetAgent(ctx, *cur.ReferredBy)
		if err != nil {
			return false, fmt.Errorf("failed to walk referral chain: %w", err)
		}
		cur = next
	}

	linked, err := tx.Agents().SetReferredBy(ctx, agent.AgentID, referrer.AgentID)
	if err != nil {
		return false, err
	}
	if linked {
		ref := referrer.AgentID
		agent.ReferredBy = &ref
		s.logger.Info("Referral linked", zap.String("agent_id", agent.AgentID), zap.String("referrer_id", referrer.AgentID))
	}
	return linked, nil
}

// Authenticate resolves a device token to an active agent.
func (s *AgentService) Authenticate(ctx context.Context, token string) (*domain.Agent, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("missing device token: %w", domain.ErrUnauthorized)
	}
	agent, err := s.store.Agents().GetAgentByDeviceToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid device token: %w", domain.ErrUnauthorized)
	}
	return agent, err
}

func (s *AgentService) UpdateProfile(ctx context.Context, agent *domain.Agent, u domain.ProfileUpdate) (*domain.Agent, error) {
	if err := u.Apply(agent); err != nil {
		return nil, err
	}
	if err := s.store.Agents().UpdateAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return agent, nil
}

// Logout drops the device token and every WhatsApp session of the agent.
func (s *AgentService) Logout(ctx context.Context, agent *domain.Agent) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		agent.DeviceToken = ""
		if err := tx.Agents().UpdateAgent(ctx, agent); err != nil {
			return err
		}
		return tx.Sessions().DeleteSessionsForAgent(ctx, agent.AgentID)
	})
}

// Deactivate soft-deletes the agent; ledger rows stay.
func (s *AgentService) Deactivate(ctx context.Context, agent *domain.Agent) error {
	agent.IsActive = false
	agent.DeviceToken = ""
	if err := s.store.Agents().UpdateAgent(ctx, agent); err != nil {
		return err
	}
	s.logger.Info("Agent deactivated", zap.String("agent_id", agent.AgentID))
	return nil
}

// ResolveReferralCode returns the display name behind a referral code.
func (s *AgentService) ResolveReferralCode(ctx context.Context, code string) (string, error) {
	agent, err := s.store.Agents().GetAgentByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(agent.Name) == "" {
		return defaultReferrerLabel, nil
	}
	return agent.Name, nil
}

// ReferralLink join URL carrying the agent's code
func (s *AgentService) ReferralLink(ctx context.Context, agent *domain.Agent) string {
	base, err := appconfig.String(ctx, s.config, appconfig.KeyRivoJoinURL, appconfig.Defaults[appconfig.KeyRivoJoinURL].(string))
	if err != nil {
		s.logger.Warn("Join URL unavailable, using default", zap.Error(err))
	}
	return base + "?ref=" + agent.AgentCode
}

// NetworkResponse referrals made by one agent
type NetworkResponse struct {
	AgentCode      string                `json:"agent_code"`
	ReferralLink   string                `json:"referral_link"`
	ReferredAgents []domain.NetworkAgent `json:"referred_agents"`
	BonusSummary   domain.BonusSummary   `json:"bonus_summary"`
}

func (s *AgentService) Network(ctx context.Context, agent *domain.Agent) (*NetworkResponse, error) {
	referred, err := s.store.Agents().ListReferredAgents(ctx, agent.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referred agents: %w", err)
	}
	bonuses, err := s.store.Ledger().ListBonuses(ctx, domain.BonusKindReferrer, agent.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral bonuses: %w", err)
	}

	earnedBy := map[string]decimal.Decimal{}
	for _, b := range bonuses {
		earnedBy[b.TriggeredByAgentID] = earnedBy[b.TriggeredByAgentID].Add(b.Amount)
	}

	out := make([]domain.NetworkAgent, 0, len(referred))
	for _, r := range referred {
		n, err := s.store.Clients().CountDisbursed(ctx, r.AgentID)
		if err != nil {
			return nil, fmt.Errorf("failed to count disbursals: %w", err)
		}
		out = append(out, domain.NetworkAgent{
			AgentID:        r.AgentID,
			Name:           r.Name,
			AgentCode:      r.AgentCode,
			JoinedAt:       r.CreatedAt,
			DisbursedCount: n,
			BonusEarned:    earnedBy[r.AgentID],
		})
	}

	schedule := s.schedule(ctx, appconfig.KeyReferrerBonuses, DefaultReferrerSchedule)
	return &NetworkResponse{
		AgentCode:      agent.AgentCode,
		ReferralLink:   s.ReferralLink(ctx, agent),
		ReferredAgents: out,
		BonusSummary:   domain.NewBonusSummary(bonuses, len(schedule)),
	}, nil
}

// BonusesResponse both ledgers for one agent
type BonusesResponse struct {
	ReferralBonuses domain.BonusSummary `json:"referral_bonuses"`
	NewAgentBonuses domain.BonusSummary `json:"new_agent_bonuses"`
}

func (s *AgentService) Bonuses(ctx context.Context, agent *domain.Agent) (*BonusesResponse, error) {
	referral, err := s.store.Ledger().ListBonuses(ctx, domain.BonusKindReferrer, agent.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral bonuses: %w", err)
	}
	newAgent, err := s.store.Ledger().ListBonuses(ctx, domain.BonusKindNewAgent, agent.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list new agent bonuses: %w", err)
	}
	return &BonusesResponse{
		ReferralBonuses: domain.NewBonusSummary(referral, len(s.schedule(ctx, appconfig.KeyReferrerBonuses, DefaultReferrerSchedule))),
		NewAgentBonuses: domain.NewBonusSummary(newAgent, len(s.schedule(ctx, appconfig.KeyNewAgentBonuses, DefaultNewAgentSchedule))),
	}, nil
}

// Earnings totals commissions on disbursed clients plus both bonus ledgers.
// Pending is the estimated commission of pre-approved clients.
func (s *AgentService) Earnings(ctx context.Context, agent *domain.Agent, now time.Time) (*domain.Earnings, error) {
	clients, err := s.store.Clients().ListClients(ctx, agent.AgentID, domain.ClientFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	bonuses, err := s.Bonuses(ctx, agent)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	e := &domain.Earnings{
		ReferralBonusesEarned: bonuses.ReferralBonuses.TotalEarned,
		NewAgentBonusesEarned: bonuses.NewAgentBonuses.TotalEarned,
		PendingAmount:         decimal.Zero,
		ThisMonthEarned:       decimal.Zero,
	}
	commissions := decimal.Zero
	for _, c := range clients {
		switch c.Status {
		case domain.StatusDisbursed:
			e.DisbursedCount++
			if c.CommissionAmount != nil {
				commissions = commissions.Add(*c.CommissionAmount)
				if !c.UpdatedAt.Before(monthStart) {
					e.ThisMonthEarned = e.ThisMonthEarned.Add(*c.CommissionAmount)
				}
			}
		case domain.StatusPreapproved:
			if c.EstimatedCommission != nil {
				e.PendingAmount = e.PendingAmount.Add(*c.EstimatedCommission)
			}
		}
	}
	for _, list := range [][]domain.Bonus{bonuses.ReferralBonuses.Bonuses, bonuses.NewAgentBonuses.Bonuses} {
		for _, b := range list {
			if !b.CreatedAt.Before(monthStart) {
				e.ThisMonthEarned = e.ThisMonthEarned.Add(b.Amount)
			}
		}
	}
	referred, err := s.store.Agents().ListReferredAgents(ctx, agent.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referred agents: %w", err)
	}
	for _, r := range referred {
		n, err := s.store.Clients().CountDisbursed(ctx, r.AgentID)
		if err != nil {
			return nil, fmt.Errorf("failed to count disbursals: %w", err)
		}
		e.NetworkDisbursalCount += n
	}
	e.TotalEarned = commissions.Add(e.ReferralBonusesEarned).Add(e.NewAgentBonusesEarned)
	return e, nil
}

func (s *AgentService) schedule(ctx context.Context, key string, def []decimal.Decimal) []decimal.Decimal {
	out, err := appconfig.Schedule(ctx, s.config, key, def)
	if err != nil {
		s.logger.Warn("Bonus schedule unavailable, using default", zap.String("key", key), zap.Error(err))
	}
	return out
}
