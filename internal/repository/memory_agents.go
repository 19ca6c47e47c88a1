package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

type MemoryAgentsRepo struct {
	st   *memState
	inTx bool
}

func (r *MemoryAgentsRepo) find(match func(a domain.Agent) bool, key string) (*domain.Agent, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	for _, a := range r.st.data.agents {
		if match(a) {
			out := a
			return &out, nil
		}
	}
	return nil, notFound("agent", key)
}

func (r *MemoryAgentsRepo) GetAgent(_ context.Context, agentID string) (*domain.Agent, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	a, ok := r.st.data.agents[agentID]
	if !ok {
		return nil, notFound("agent", agentID)
	}
	return &a, nil
}

func (r *MemoryAgentsRepo) GetAgentByPhone(_ context.Context, phone string) (*domain.Agent, error) {
	return r.find(func(a domain.Agent) bool { return a.Phone == phone }, phone)
}

func (r *MemoryAgentsRepo) GetAgentByCode(_ context.Context, code string) (*domain.Agent, error) {
	return r.find(func(a domain.Agent) bool { return a.AgentCode == code }, code)
}

func (r *MemoryAgentsRepo) GetAgentByDeviceToken(_ context.Context, token string) (*domain.Agent, error) {
	if token == "" {
		return nil, domain.Validationf("device token is required")
	}
	return r.find(func(a domain.Agent) bool { return a.DeviceToken == token && a.IsActive }, "token")
}

func (r *MemoryAgentsRepo) CreateAgent(_ context.Context, a *domain.Agent) error {
	if a.Phone == "" {
		return domain.Validationf("phone is required")
	}
	defer r.st.lock(r.inTx)()

	if a.AgentID == "" {
		a.AgentID = uuid.NewString()
	}
	if a.AgentCode == "" {
		a.AgentCode = domain.NewAgentCode()
	}
	for _, other := range r.st.data.agents {
		if other.Phone == a.Phone || other.AgentCode == a.AgentCode || other.AgentID == a.AgentID {
			return domain.ErrConstraintConflict
		}
	}
	a.RefreshProfileComplete()
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	r.st.data.agents[a.AgentID] = *a
	return nil
}

func (r *MemoryAgentsRepo) UpdateAgent(_ context.Context, a *domain.Agent) error {
	defer r.st.lock(r.inTx)()

	cur, ok := r.st.data.agents[a.AgentID]
	if !ok {
		return notFound("agent", a.AgentID)
	}
	a.RefreshProfileComplete()
	a.Phone = cur.Phone
	a.AgentCode = cur.AgentCode
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = now()
	r.st.data.agents[a.AgentID] = *a
	return nil
}

func (r *MemoryAgentsRepo) SetReferredBy(_ context.Context, agentID, referrerID string) (bool, error) {
	defer r.st.lock(r.inTx)()

	a, ok := r.st.data.agents[agentID]
	if !ok {
		return false, notFound("agent", agentID)
	}
	if a.ReferredBy != nil {
		return false, nil
	}
	ref := referrerID
	a.ReferredBy = &ref
	a.UpdatedAt = now()
	r.st.data.agents[agentID] = a
	return true, nil
}

func (r *MemoryAgentsRepo) ListReferredAgents(_ context.Context, referrerID string) ([]domain.Agent, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var out []domain.Agent
	for _, a := range r.st.data.agents {
		if a.ReferredBy != nil && *a.ReferredBy == referrerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryAgentsRepo) ListInactiveAgents(_ context.Context, since time.Time) ([]domain.Agent, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	recent := map[string]bool{}
	for _, c := range r.st.data.clients {
		if c.SourceAgentID != nil && !c.CreatedAt.Before(since) {
			recent[*c.SourceAgentID] = true
		}
	}
	var out []domain.Agent
	for _, a := range r.st.data.agents {
		if a.IsActive && !recent[a.AgentID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
