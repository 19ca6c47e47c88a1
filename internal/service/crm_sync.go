package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

type SyncReport struct {
	Total     int `json:"total"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

// CRMSync pulls lead statuses from the CRM and feeds changes through the
// status pipeline.
type CRMSync struct {
	store    repository.Store
	pipeline *StatusPipeline
	fetcher  LeadStatusFetcher
	logger   *zap.Logger
}

func NewCRMSync(store repository.Store, pipeline *StatusPipeline, fetcher LeadStatusFetcher, logger *zap.Logger) *CRMSync {
	return &CRMSync{store: store, pipeline: pipeline, fetcher: fetcher, logger: logger}
}

// Run processes every non-terminal client with a CRM lead id. A failing
// lead is counted and skipped.
func (s *CRMSync) Run(ctx context.Context) (*SyncReport, error) {
	clients, err := s.store.Clients().ListSyncCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync candidates: %w", err)
	}

	report := &SyncReport{Total: len(clients)}
	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		lead := *c.CRMLeadID
		remote, err := s.fetcher.FetchLeadStatus(ctx, lead)
		if err != nil {
			report.Errors++
			s.logger.Warn("CRM lead status fetch failed", zap.String("lead_id", lead), zap.Error(err))
			continue
		}
		if remote.Status == c.Status {
			report.Unchanged++
			continue
		}
		update := StatusUpdate{Ref: domain.ClientByID(c.ClientID), NewStatus: remote.Status, Amount: remote.MortgageAmount}
		if _, err := s.pipeline.Process(ctx, update); err != nil {
			report.Errors++
			continue
		}
		report.Updated++
	}

	s.logger.Info("CRM sync finished",
		zap.Int("total", report.Total),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}
