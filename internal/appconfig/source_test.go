package appconfig

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, json.Number("0.45"), ParseValue("0.45"))
	assert.Equal(t, "https://wa.me/971545079577", ParseValue("https://wa.me/971545079577"))
	assert.Equal(t, "7 days", ParseValue("7 days"))
	assert.Equal(t, []any{json.Number("500"), json.Number("1000")}, ParseValue("[500, 1000]"))
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	def := []decimal.Decimal{decimal.NewFromInt(1)}

	got, err := Schedule(ctx, Static{KeyReferrerBonuses: "[500, 500.50, \"1000\"]"}, KeyReferrerBonuses, def)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, decimal.RequireFromString("500.5").Equal(got[1]))
	assert.True(t, decimal.NewFromInt(1000).Equal(got[2]))

	got, err = Schedule(ctx, Static{}, KeyReferrerBonuses, def)
	require.NoError(t, err)
	assert.Equal(t, def, got)

	got, err = Schedule(ctx, Static{KeyReferrerBonuses: "not a list"}, KeyReferrerBonuses, def)
	assert.True(t, errors.Is(err, domain.ErrConfigurationUnavailable))
	assert.Equal(t, def, got)

	_, err = Schedule(ctx, Static{KeyReferrerBonuses: "[500, -1]"}, KeyReferrerBonuses, def)
	assert.True(t, errors.Is(err, domain.ErrConfigurationUnavailable))

	got, err = Schedule(ctx, Static{KeyReferrerBonuses: "[]"}, KeyReferrerBonuses, def)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIntAndDecimal(t *testing.T) {
	ctx := context.Background()
	src := Static{
		KeyInactiveNudgeDays:    "14",
		KeyCommissionMinPercent: "0.5",
		KeyMilestoneThresholds:  "[5, 10, 25]",
	}

	days, err := Int(ctx, src, KeyInactiveNudgeDays, 7)
	require.NoError(t, err)
	assert.Equal(t, 14, days)

	pct, err := Decimal(ctx, src, KeyCommissionMinPercent, decimal.RequireFromString("0.45"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.5").Equal(pct))

	_, err = Int(ctx, src, KeyCommissionMinPercent, 7)
	assert.True(t, errors.Is(err, domain.ErrConfigurationUnavailable))

	set, err := IntSet(ctx, src, KeyMilestoneThresholds)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{5: true, 10: true, 25: true}, set)

	set, err = IntSet(ctx, Static{}, KeyMilestoneThresholds)
	require.NoError(t, err)
	assert.Empty(t, set)
}
