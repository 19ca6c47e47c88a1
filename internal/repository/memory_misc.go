package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

type MemoryConfigRepo struct {
	st   *memState
	inTx bool
}

func (r *MemoryConfigRepo) GetConfig(_ context.Context, key string) (*domain.ConfigEntry, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	e, ok := r.st.data.config[key]
	if !ok {
		return nil, notFound("config", key)
	}
	return &e, nil
}

func (r *MemoryConfigRepo) ListConfig(_ context.Context) ([]domain.ConfigEntry, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	out := make([]domain.ConfigEntry, 0, len(r.st.data.config))
	for _, e := range r.st.data.config {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *MemoryConfigRepo) UpsertConfig(_ context.Context, e domain.ConfigEntry) error {
	if e.Key == "" {
		return domain.Validationf("config key is required")
	}
	defer r.st.lock(r.inTx)()
	if cur, ok := r.st.data.config[e.Key]; ok && e.Description == "" {
		e.Description = cur.Description
	}
	e.UpdatedAt = now()
	r.st.data.config[e.Key] = e
	return nil
}

func (r *MemoryConfigRepo) CreateConfigIfMissing(_ context.Context, e domain.ConfigEntry) (bool, error) {
	if e.Key == "" {
		return false, domain.Validationf("config key is required")
	}
	defer r.st.lock(r.inTx)()
	if _, ok := r.st.data.config[e.Key]; ok {
		return false, nil
	}
	e.UpdatedAt = now()
	r.st.data.config[e.Key] = e
	return true, nil
}

type MemorySessionsRepo struct {
	st   *memState
	inTx bool
}

func (r *MemorySessionsRepo) CreateSession(_ context.Context, s *domain.WhatsAppSession) error {
	if len(s.Code) != 6 {
		return domain.Validationf("session code must have 6 digits")
	}
	defer r.st.lock(r.inTx)()
	for _, other := range r.st.data.sessions {
		if other.Code == s.Code && !other.IsVerified {
			return fmt.Errorf("session code %s: %w", s.Code, domain.ErrConstraintConflict)
		}
	}
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	s.CreatedAt = now()
	r.st.data.sessions = append(r.st.data.sessions, *s)
	return nil
}

func (r *MemorySessionsRepo) GetSessionByCode(_ context.Context, code string) (*domain.WhatsAppSession, error) {
	return r.find(code, func(domain.WhatsAppSession) bool { return true })
}

func (r *MemorySessionsRepo) GetPendingSession(_ context.Context, code string) (*domain.WhatsAppSession, error) {
	return r.find(code, func(s domain.WhatsAppSession) bool { return !s.IsVerified })
}

// find returns the newest session with code that passes match.
func (r *MemorySessionsRepo) find(code string, match func(domain.WhatsAppSession) bool) (*domain.WhatsAppSession, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	for i := len(r.st.data.sessions) - 1; i >= 0; i-- {
		s := r.st.data.sessions[i]
		if s.Code == code && match(s) {
			return &s, nil
		}
	}
	return nil, notFound("session", code)
}

func (r *MemorySessionsRepo) MarkSessionVerified(_ context.Context, s *domain.WhatsAppSession) error {
	defer r.st.lock(r.inTx)()
	for i, cur := range r.st.data.sessions {
		if cur.SessionID == s.SessionID && !cur.IsVerified {
			cur.Phone = s.Phone
			cur.AgentID = s.AgentID
			cur.DeviceToken = s.DeviceToken
			cur.IsVerified = true
			r.st.data.sessions[i] = cur
			s.IsVerified = true
			return nil
		}
	}
	return notFound("pending session", s.SessionID)
}

func (r *MemorySessionsRepo) DeleteSessionsForAgent(_ context.Context, agentID string) error {
	defer r.st.lock(r.inTx)()
	kept := r.st.data.sessions[:0]
	for _, s := range r.st.data.sessions {
		if s.AgentID == nil || *s.AgentID != agentID {
			kept = append(kept, s)
		}
	}
	r.st.data.sessions = kept
	return nil
}

type MemoryWebhookLogsRepo struct {
	st   *memState
	inTx bool
}

func (r *MemoryWebhookLogsRepo) CreateWebhookLog(_ context.Context, l *domain.WebhookLog) error {
	if l.Source == "" {
		return domain.Validationf("webhook source is required")
	}
	defer r.st.lock(r.inTx)()
	if l.LogID == "" {
		l.LogID = uuid.NewString()
	}
	l.CreatedAt = now()
	r.st.data.logs = append(r.st.data.logs, *l)
	return nil
}

func (r *MemoryWebhookLogsRepo) FinishWebhookLog(_ context.Context, logID string, processed bool, errMsg string) error {
	defer r.st.lock(r.inTx)()
	for i := range r.st.data.logs {
		if r.st.data.logs[i].LogID == logID {
			r.st.data.logs[i].Processed = processed
			r.st.data.logs[i].ErrorMessage = errMsg
			return nil
		}
	}
	return notFound("webhook log", logID)
}

func (r *MemoryWebhookLogsRepo) ListWebhookLogs(_ context.Context, source string, limit int) ([]domain.WebhookLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []domain.WebhookLog
	for i := len(r.st.data.logs) - 1; i >= 0 && len(out) < limit; i-- {
		l := r.st.data.logs[i]
		if source == "" || l.Source == source {
			out = append(out, l)
		}
	}
	return out, nil
}
