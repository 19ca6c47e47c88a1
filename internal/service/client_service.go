package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

// ClientService client submission and the agent's client views
type ClientService struct {
	store      repository.Store
	config     appconfig.Source
	dispatcher FactDispatcher
	logger     *zap.Logger
}

func NewClientService(store repository.Store, config appconfig.Source, dispatcher FactDispatcher, logger *zap.Logger) *ClientService {
	return &ClientService{store: store, config: config, dispatcher: dispatcher, logger: logger}
}

// Submit creates a client referred by agent and lets the client know who
// referred them.
func (s *ClientService) Submit(ctx context.Context, agent *domain.Agent, sub domain.ClientSubmission) (*domain.Client, error) {
	sub.ClientName = strings.TrimSpace(sub.ClientName)
	sub.ClientPhone = strings.TrimSpace(sub.ClientPhone)
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if domain.SamePhone(agent.Phone, sub.ClientPhone) {
		return nil, domain.Validationf("you cannot refer yourself as a client")
	}

	pct, err := appconfig.Decimal(ctx, s.config, appconfig.KeyCommissionMinPercent, defaultCommissionPercent)
	if err != nil {
		s.logger.Warn("Commission percent unavailable, using default", zap.Error(err))
	}

	agentID := agent.AgentID
	client := &domain.Client{
		ClientName:             sub.ClientName,
		ClientPhone:            sub.ClientPhone,
		ExpectedMortgageAmount: sub.ExpectedMortgageAmount,
		Status:                 domain.StatusSubmitted,
		SourceAgentID:          &agentID,
		Channel:                domain.ChannelPartnerPWA,
		ConsentGiven:           true,
	}
	client.FillEstimatedCommission(pct)

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		exists, err := tx.Clients().PhoneExists(ctx, domain.PhoneVariants(sub.ClientPhone))
		if err != nil {
			return fmt.Errorf("failed to check client phone: %w", err)
		}
		if exists {
			return domain.Validationf("a client with this phone number already exists")
		}
		if err := tx.Clients().CreateClient(ctx, client); err != nil {
			return err
		}
		if !agent.HasCompletedFirstAction {
			agent.HasCompletedFirstAction = true
			return tx.Agents().UpdateAgent(ctx, agent)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Client submitted", zap.String("client_id", client.ClientID), zap.String("agent_id", agent.AgentID))
	emit(ctx, s.dispatcher, s.logger, domain.ClientReferred{
		ClientID:    client.ClientID,
		ClientPhone: domain.NormalizePhone(client.ClientPhone),
		ClientName:  client.ClientName,
		AgentID:     agent.AgentID,
		AgentName:   agent.DisplayName(),
	})
	return client, nil
}

// List agent's clients; status "" or "ALL" disables the status filter.
func (s *ClientService) List(ctx context.Context, agent *domain.Agent, search, status string) ([]domain.Client, error) {
	filter := domain.ClientFilter{Search: strings.TrimSpace(search)}
	if st := strings.ToUpper(strings.TrimSpace(status)); st != "" && st != "ALL" {
		parsed, err := domain.ParseStatus(st)
		if err != nil {
			return nil, err
		}
		filter.Status = parsed
	}
	clients, err := s.store.Clients().ListClients(ctx, agent.AgentID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	if clients == nil {
		clients = []domain.Client{}
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, agent *domain.Agent, clientID string) (*domain.Client, error) {
	return s.store.Clients().GetClientForAgent(ctx, agent.AgentID, clientID)
}
