package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

const (
	sessionCodeAttempts = 10
	retryMessage        = "We couldn't verify your code. Please send the correct code again."
)

var verificationCodePattern = regexp.MustCompile(`RIVO\s*(\d{6})`)

// InboundMessage a WhatsApp text received through YCloud
type InboundMessage struct {
	From        string
	Text        string
	ProfileName string
}

// SessionInit returned to the PWA when it starts verification
type SessionInit struct {
	Code        string `json:"code"`
	WhatsAppURL string `json:"whatsapp_url"`
}

// SessionCheck poll result; Agent and Token only once verified
type SessionCheck struct {
	Verified bool          `json:"verified"`
	Agent    *domain.Agent `json:"agent,omitempty"`
	Token    string        `json:"token,omitempty"`
}

// VerificationService WhatsApp login: the PWA opens a chat pre-filled with
// "RIVO <code>", the inbound webhook matches the code and signs the agent in.
type VerificationService struct {
	store  repository.Store
	agents *AgentService
	config appconfig.Source
	sender MessageSender
	appURL string
	logger *zap.Logger
}

func NewVerificationService(store repository.Store, agents *AgentService, config appconfig.Source, sender MessageSender, appURL string, logger *zap.Logger) *VerificationService {
	return &VerificationService{store: store, agents: agents, config: config, sender: sender, appURL: appURL, logger: logger}
}

func (s *VerificationService) InitSession(ctx context.Context, referralCode string, isBusiness bool) (*SessionInit, error) {
	linkKey := appconfig.KeyWhatsAppPersonal
	if isBusiness {
		linkKey = appconfig.KeyWhatsAppBusiness
	}
	base, err := appconfig.String(ctx, s.config, linkKey, appconfig.Defaults[linkKey].(string))
	if err != nil {
		s.logger.Warn("WhatsApp link unavailable, using default", zap.String("key", linkKey), zap.Error(err))
	}

	for i := 0; i < sessionCodeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}
		session := &domain.WhatsAppSession{
			Code:               code,
			ReferralCode:       strings.ToUpper(strings.TrimSpace(referralCode)),
			IsWhatsAppBusiness: isBusiness,
		}
		err = s.store.Sessions().CreateSession(ctx, session)
		if errors.Is(err, domain.ErrConstraintConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return &SessionInit{
			Code:        code,
			WhatsAppURL: base + "?text=" + url.PathEscape("RIVO "+code),
		}, nil
	}
	return nil, fmt.Errorf("no free session code after %d attempts: %w", sessionCodeAttempts, domain.ErrConstraintConflict)
}

func (s *VerificationService) CheckSession(ctx context.Context, code string) (*SessionCheck, error) {
	session, err := s.store.Sessions().GetSessionByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !session.IsVerified || session.AgentID == nil {
		return &SessionCheck{Verified: false}, nil
	}
	agent, err := s.store.Agents().GetAgent(ctx, *session.AgentID)
	if err != nil {
		return nil, err
	}
	return &SessionCheck{Verified: true, Agent: agent, Token: session.DeviceToken}, nil
}

// HandleInbound verifies the sender when the text carries a pending code.
// The sender is asked to retry when it does not.
func (s *VerificationService) HandleInbound(ctx context.Context, msg InboundMessage) (*domain.Agent, error) {
	phone := domain.NormalizePhone(msg.From)
	if phone == "" {
		return nil, domain.Validationf("message has no sender")
	}

	m := verificationCodePattern.FindStringSubmatch(strings.ToUpper(msg.Text))
	if m == nil {
		sendText(ctx, s.sender, s.logger, phone, retryMessage)
		return nil, domain.Validationf("no valid RIVO code in message")
	}
	code := m[1]

	var (
		agent          *domain.Agent
		facts          []domain.Fact
		sessionMissing bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		session, err := tx.Sessions().GetPendingSession(ctx, code)
		if err != nil {
			sessionMissing = errors.Is(err, domain.ErrNotFound)
			return err
		}
		agent, _, facts, err = s.agents.verifyTx(ctx, tx, domain.VerificationEvent{
			Phone:              phone,
			ProfileName:        msg.ProfileName,
			ReferralCode:       session.ReferralCode,
			IsWhatsAppBusiness: session.IsWhatsAppBusiness,
		})
		if err != nil {
			return err
		}
		session.Phone = phone
		session.AgentID = &agent.AgentID
		session.DeviceToken = agent.DeviceToken
		return tx.Sessions().MarkSessionVerified(ctx, session)
	})
	if sessionMissing {
		sendText(ctx, s.sender, s.logger, phone, retryMessage)
		return nil, fmt.Errorf("code not found or already verified: %s: %w", code, domain.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Agent verified over WhatsApp", zap.String("agent_id", agent.AgentID))
	emit(ctx, s.agents.dispatcher, s.logger, facts...)
	sendText(ctx, s.sender, s.logger, phone, s.verifiedReply())
	return agent, nil
}

func (s *VerificationService) verifiedReply() string {
	if s.appURL == "" {
		return "You're verified! Head back to the Rivo Partner app to continue."
	}
	return "You're verified! Head back to the Rivo Partner app to continue: " + s.appURL
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate session code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
