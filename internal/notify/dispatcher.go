package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// Dispatcher delivers one fact to one channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, fact domain.Fact) error
}

// Multi fans a fact out to every channel. All channels are tried; the
// failures are joined.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, fact domain.Fact) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, fact); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// Log writes facts to the service log. It is always part of the fan-out.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Dispatch(_ context.Context, fact domain.Fact) error {
	l.logger.Info("Fact", zap.String("type", fact.FactType()), zap.Any("fact", fact), zap.String("text", Describe(fact)))
	return nil
}

// Describe one-line operator text for a fact.
func Describe(fact domain.Fact) string {
	switch f := fact.(type) {
	case domain.BonusAwarded:
		return fmt.Sprintf("%s bonus #%d of AED %s for agent %s (client %s)",
			roleLabel(f.Role), f.DealNumber, f.Amount.StringFixed(2), f.BeneficiaryID, f.ClientID)
	case domain.MilestoneReached:
		return fmt.Sprintf("Agent %s reached %d disbursed deals", f.AgentID, f.Count)
	case domain.AgentSignedUp:
		return fmt.Sprintf("%s (%s) joined through referrer %s", f.AgentName, f.AgentID, f.ReferrerID)
	case domain.ClientReferred:
		return fmt.Sprintf("%s referred client %s (%s)", f.AgentName, f.ClientName, f.ClientID)
	}
	return fact.FactType()
}

func roleLabel(k domain.BonusKind) string {
	if k == domain.BonusKindReferrer {
		return "Referral"
	}
	return "New agent"
}
