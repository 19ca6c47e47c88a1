package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// Publisher is satisfied by *mqtt.Client from internal/common/mqtt.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher publishes facts as JSON under <prefix>/<area>/<agent>/<type>.
type MQTTPublisher struct {
	client Publisher
	prefix string
	qos    byte
}

func NewMQTTPublisher(client Publisher, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos}
}

func (p *MQTTPublisher) Dispatch(_ context.Context, fact domain.Fact) error {
	payload, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", fact.FactType(), err)
	}
	return p.client.Publish(p.Topic(fact), p.qos, false, payload)
}

// Topic where a fact is published; subscribers filter on the agent level.
func (p *MQTTPublisher) Topic(fact domain.Fact) string {
	switch f := fact.(type) {
	case domain.BonusAwarded:
		return fmt.Sprintf("%s/bonus/%s/%s", p.prefix, f.BeneficiaryID, fact.FactType())
	case domain.MilestoneReached:
		return fmt.Sprintf("%s/bonus/%s/%s", p.prefix, f.AgentID, fact.FactType())
	case domain.AgentSignedUp:
		return fmt.Sprintf("%s/agent/%s/%s", p.prefix, f.ReferrerID, fact.FactType())
	case domain.ClientReferred:
		return fmt.Sprintf("%s/agent/%s/%s", p.prefix, f.AgentID, fact.FactType())
	}
	return fmt.Sprintf("%s/facts/%s", p.prefix, fact.FactType())
}
