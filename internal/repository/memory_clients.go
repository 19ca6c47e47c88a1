package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

type MemoryClientsRepo struct {
	st   *memState
	inTx bool
}

func (r *MemoryClientsRepo) GetClient(_ context.Context, clientID string) (*domain.Client, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	c, ok := r.st.data.clients[clientID]
	if !ok {
		return nil, notFound("client", clientID)
	}
	return &c, nil
}

func (r *MemoryClientsRepo) GetClientForAgent(ctx context.Context, agentID, clientID string) (*domain.Client, error) {
	c, err := r.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c.SourceAgentID == nil || *c.SourceAgentID != agentID {
		return nil, notFound("client", clientID)
	}
	return c, nil
}

// LockClient is a plain read; MemoryStore transactions are already serialized.
func (r *MemoryClientsRepo) LockClient(ctx context.Context, ref domain.ClientRef) (*domain.Client, error) {
	switch ref.Kind {
	case domain.ClientRefID:
		return r.GetClient(ctx, ref.Value)
	case domain.ClientRefCRMLeadID:
		r.st.mu.RLock()
		defer r.st.mu.RUnlock()
		var found *domain.Client
		for _, c := range r.st.data.clients {
			if c.CRMLeadID != nil && *c.CRMLeadID == ref.Value {
				if found == nil || c.CreatedAt.Before(found.CreatedAt) {
					cc := c
					found = &cc
				}
			}
		}
		if found == nil {
			return nil, notFound("client", ref.String())
		}
		return found, nil
	}
	return nil, domain.Validationf("unknown client reference kind %q", ref.Kind)
}

func (r *MemoryClientsRepo) CreateClient(_ context.Context, c *domain.Client) error {
	if c.ClientName == "" || c.ClientPhone == "" {
		return domain.Validationf("client_name and client_phone are required")
	}
	defer r.st.lock(r.inTx)()

	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.StatusSubmitted
	}
	if c.Channel == "" {
		c.Channel = domain.ChannelPartnerPWA
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	r.st.data.clients[c.ClientID] = *c
	return nil
}

func (r *MemoryClientsRepo) UpdateClient(_ context.Context, c *domain.Client) error {
	defer r.st.lock(r.inTx)()

	cur, ok := r.st.data.clients[c.ClientID]
	if !ok {
		return notFound("client", c.ClientID)
	}
	cur.ExpectedMortgageAmount = c.ExpectedMortgageAmount
	cur.EstimatedCommission = c.EstimatedCommission
	cur.CommissionAmount = c.CommissionAmount
	cur.Status = c.Status
	cur.CRMLeadID = c.CRMLeadID
	cur.UpdatedAt = now()
	r.st.data.clients[c.ClientID] = cur
	c.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *MemoryClientsRepo) ListClients(_ context.Context, agentID string, filter domain.ClientFilter) ([]domain.Client, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []domain.Client
	for _, c := range r.st.data.clients {
		if c.SourceAgentID == nil || *c.SourceAgentID != agentID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.ClientName), search) {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryClientsRepo) PhoneExists(_ context.Context, phones []string) (bool, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	for _, c := range r.st.data.clients {
		for _, p := range phones {
			if c.ClientPhone == p {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *MemoryClientsRepo) CountDisbursed(_ context.Context, agentID string) (int, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	n := 0
	for _, c := range r.st.data.clients {
		if c.SourceAgentID != nil && *c.SourceAgentID == agentID && c.Status == domain.StatusDisbursed {
			n++
		}
	}
	return n, nil
}

func (r *MemoryClientsRepo) ListSyncCandidates(_ context.Context) ([]domain.Client, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []domain.Client
	for _, c := range r.st.data.clients {
		if c.CRMLeadID != nil && !c.Status.Terminal() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
