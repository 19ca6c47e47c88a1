package appconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
)

// Store reads app_config on every call; it is the authoritative Source.
type Store struct {
	repo   repository.ConfigRepo
	logger *zap.Logger
}

func NewStore(repo repository.ConfigRepo, logger *zap.Logger) *Store {
	return &Store{repo: repo, logger: logger}
}

func (s *Store) Value(ctx context.Context, key string) (any, bool, error) {
	e, err := s.repo.GetConfig(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return ParseValue(e.Value), true, nil
}

// All returns every stored key with parsed values.
func (s *Store) All(ctx context.Context) (map[string]any, error) {
	entries, err := s.repo.ListConfig(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		out[e.Key] = ParseValue(e.Value)
	}
	return out, nil
}

// Public stored config merged over Defaults.
func (s *Store) Public(ctx context.Context) (map[string]any, error) {
	stored, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(Defaults)+len(stored))
	for k, v := range Defaults {
		out[k] = v
	}
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

// Set stores value, JSON-encoding anything that is not already a string.
func (s *Store) Set(ctx context.Context, key string, value any, description string) error {
	raw, err := EncodeValue(value)
	if err != nil {
		return domain.Validationf("config %s: %v", key, err)
	}
	if err := validateKnownKey(key, raw); err != nil {
		return err
	}
	if err := s.repo.UpsertConfig(ctx, domain.ConfigEntry{Key: key, Value: raw, Description: description}); err != nil {
		return err
	}
	s.logger.Info("Config updated", zap.String("key", key), zap.String("value", raw))
	return nil
}

// Seed inserts SeedData rows that do not exist yet and returns their keys.
func (s *Store) Seed(ctx context.Context) ([]string, error) {
	var created []string
	for _, e := range SeedData {
		ok, err := s.repo.CreateConfigIfMissing(ctx, domain.ConfigEntry{Key: e.Key, Value: e.Value, Description: e.Description})
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", e.Key, err)
		}
		if ok {
			created = append(created, e.Key)
		}
	}
	return created, nil
}

// validateKnownKey rejects writes that would break the bonus engine.
func validateKnownKey(key, raw string) error {
	src := Static{key: raw}
	var err error
	switch key {
	case KeyNewAgentBonuses, KeyReferrerBonuses, KeyMilestoneThresholds:
		_, err = Schedule(context.Background(), src, key, nil)
	case KeyCommissionMinPercent, KeyCommissionMaxPercent, KeyAvgPayout:
		_, err = Decimal(context.Background(), src, key, decimal.Zero)
	case KeyInactiveNudgeDays:
		_, err = Int(context.Background(), src, key, 0)
	}
	if err != nil {
		return domain.Validationf("config %s: %v", key, err)
	}
	return nil
}
