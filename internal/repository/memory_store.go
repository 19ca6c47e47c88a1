package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// MemoryStore keeps everything in process memory. It backs local runs with
// DB_ENABLED=false and the service tests. Transactions are serialized and a
// failed transaction restores a snapshot taken at its start. Writes outside a
// transaction wait for the running one, so a rollback cannot drop them.
type MemoryStore struct {
	st   *memState
	inTx bool
}

type memState struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *memData
}

// lock takes the write lock. Outside a transaction txMu is held as well.
func (st *memState) lock(inTx bool) func() {
	if !inTx {
		st.txMu.Lock()
	}
	st.mu.Lock()
	return func() {
		st.mu.Unlock()
		if !inTx {
			st.txMu.Unlock()
		}
	}
}

type counterKey struct {
	beneficiaryID string
	kind          domain.BonusKind
}

type memData struct {
	agents   map[string]domain.Agent
	clients  map[string]domain.Client
	bonuses  map[domain.BonusKind][]domain.Bonus
	counters map[counterKey]int
	config   map[string]domain.ConfigEntry
	sessions []domain.WhatsAppSession
	logs     []domain.WebhookLog
}

func newMemData() *memData {
	return &memData{
		agents:   map[string]domain.Agent{},
		clients:  map[string]domain.Client{},
		bonuses:  map[domain.BonusKind][]domain.Bonus{},
		counters: map[counterKey]int{},
		config:   map[string]domain.ConfigEntry{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.agents {
		c.agents[k] = v
	}
	for k, v := range d.clients {
		c.clients[k] = v
	}
	for k, v := range d.bonuses {
		c.bonuses[k] = append([]domain.Bonus(nil), v...)
	}
	for k, v := range d.counters {
		c.counters[k] = v
	}
	for k, v := range d.config {
		c.config[k] = v
	}
	c.sessions = append([]domain.WhatsAppSession(nil), d.sessions...)
	c.logs = append([]domain.WebhookLog(nil), d.logs...)
	return c
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{data: newMemData()}}
}

func (s *MemoryStore) Agents() AgentsRepo           { return &MemoryAgentsRepo{st: s.st, inTx: s.inTx} }
func (s *MemoryStore) Clients() ClientsRepo         { return &MemoryClientsRepo{st: s.st, inTx: s.inTx} }
func (s *MemoryStore) Ledger() LedgerRepo           { return &MemoryLedgerRepo{st: s.st, inTx: s.inTx} }
func (s *MemoryStore) Config() ConfigRepo           { return &MemoryConfigRepo{st: s.st, inTx: s.inTx} }
func (s *MemoryStore) Sessions() SessionsRepo       { return &MemorySessionsRepo{st: s.st, inTx: s.inTx} }
func (s *MemoryStore) WebhookLogs() WebhookLogsRepo { return &MemoryWebhookLogsRepo{st: s.st, inTx: s.inTx} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.RLock()
	snapshot := s.st.data.clone()
	s.st.mu.RUnlock()

	if err := fn(&MemoryStore{st: s.st, inTx: true}); err != nil {
		s.st.mu.Lock()
		s.st.data = snapshot
		s.st.mu.Unlock()
		return err
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }
