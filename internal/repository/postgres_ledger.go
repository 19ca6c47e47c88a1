package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// ledgerTable column layout of one bonus ledger
type ledgerTable struct {
	name           string
	beneficiaryCol string
	triggeredCol   string // empty for new_agent_bonuses: the agent is the trigger
	clientCol      string
}

var ledgerTables = map[domain.BonusKind]ledgerTable{
	domain.BonusKindNewAgent: {
		name:           "new_agent_bonuses",
		beneficiaryCol: "agent_id",
		clientCol:      "client_id",
	},
	domain.BonusKindReferrer: {
		name:           "referral_bonuses",
		beneficiaryCol: "referrer_id",
		triggeredCol:   "triggered_by_agent_id",
		clientCol:      "triggered_by_client_id",
	},
}

func ledgerFor(kind domain.BonusKind) (ledgerTable, error) {
	t, ok := ledgerTables[kind]
	if !ok {
		return ledgerTable{}, domain.Validationf("unknown bonus kind %q", kind)
	}
	return t, nil
}

// PostgresLedgerRepo referral_bonuses, new_agent_bonuses and bonus_counters.
// AwardNext uses savepoints and therefore needs a transaction (inTx).
type PostgresLedgerRepo struct {
	db     DBTX
	inTx   bool
	logger *zap.Logger
}

func NewPostgresLedgerRepo(db DBTX, inTx bool, logger *zap.Logger) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{db: db, inTx: inTx, logger: logger}
}

func (r *PostgresLedgerRepo) AwardNext(ctx context.Context, kind domain.BonusKind, claim BonusClaim, schedule []decimal.Decimal) (*domain.Bonus, error) {
	t, err := ledgerFor(kind)
	if err != nil {
		return nil, err
	}
	if claim.BeneficiaryID == "" || claim.ClientID == "" {
		return nil, domain.Validationf("beneficiary_id and client_id are required")
	}
	if !r.inTx {
		return nil, fmt.Errorf("award %s bonus: must run inside a transaction", kind)
	}
	if len(schedule) == 0 {
		return nil, nil
	}

	if _, err := r.db.ExecContext(ctx, `SAVEPOINT award_bonus`); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	bonus, err := r.awardNext(ctx, t, kind, claim, schedule)
	if err != nil {
		if _, rbErr := r.db.ExecContext(ctx, `ROLLBACK TO SAVEPOINT award_bonus`); rbErr != nil {
			return nil, fmt.Errorf("failed to roll back savepoint: %v (after %w)", rbErr, err)
		}
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, `RELEASE SAVEPOINT award_bonus`); err != nil {
		return nil, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return bonus, nil
}

func (r *PostgresLedgerRepo) awardNext(ctx context.Context, t ledgerTable, kind domain.BonusKind, claim BonusClaim, schedule []decimal.Decimal) (*domain.Bonus, error) {
	// Counter rows are created lazily from the ledger so existing data needs no backfill.
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO bonus_counters (beneficiary_id, kind, last_deal_number)
		SELECT $1, $2, COALESCE(MAX(deal_number), 0) FROM %s WHERE %s = $1
		ON CONFLICT (beneficiary_id, kind) DO NOTHING`, t.name, t.beneficiaryCol),
		claim.BeneficiaryID, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init bonus counter: %w", err)
	}

	var deal int
	err = r.db.QueryRowContext(ctx, `
		UPDATE bonus_counters
		SET last_deal_number = last_deal_number + 1, updated_at = now()
		WHERE beneficiary_id = $1 AND kind = $2 AND last_deal_number < $3
		RETURNING last_deal_number`,
		claim.BeneficiaryID, string(kind), len(schedule),
	).Scan(&deal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// schedule exhausted
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reserve deal number: %w", err)
	}

	b := &domain.Bonus{
		BonusID:            uuid.NewString(),
		Kind:               kind,
		BeneficiaryID:      claim.BeneficiaryID,
		TriggeredByAgentID: claim.TriggeredByAgentID,
		ClientID:           claim.ClientID,
		DealNumber:         deal,
		Amount:             schedule[deal-1].Round(2),
	}

	var query string
	var args []any
	if t.triggeredCol != "" {
		query = fmt.Sprintf(`
			INSERT INTO %s (bonus_id, %s, %s, %s, deal_number, amount)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT DO NOTHING
			RETURNING created_at`, t.name, t.beneficiaryCol, t.triggeredCol, t.clientCol)
		args = []any{b.BonusID, b.BeneficiaryID, b.TriggeredByAgentID, b.ClientID, b.DealNumber, b.Amount}
	} else {
		b.TriggeredByAgentID = b.BeneficiaryID
		query = fmt.Sprintf(`
			INSERT INTO %s (bonus_id, %s, %s, deal_number, amount)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING
			RETURNING created_at`, t.name, t.beneficiaryCol, t.clientCol)
		args = []any{b.BonusID, b.BeneficiaryID, b.ClientID, b.DealNumber, b.Amount}
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, fmt.Errorf("%s bonus for %s on client %s: %w", kind, claim.BeneficiaryID, claim.ClientID, domain.ErrConstraintConflict)
		}
		return nil, fmt.Errorf("failed to insert %s bonus: %w", kind, err)
	}

	r.logger.Info("Bonus awarded",
		zap.String("kind", string(kind)),
		zap.String("beneficiary_id", b.BeneficiaryID),
		zap.String("client_id", b.ClientID),
		zap.Int("deal_number", b.DealNumber),
		zap.String("amount", b.Amount.StringFixed(2)),
	)
	return b, nil
}

func (r *PostgresLedgerRepo) ListBonuses(ctx context.Context, kind domain.BonusKind, beneficiaryID string) ([]domain.Bonus, error) {
	if beneficiaryID == "" {
		return nil, domain.Validationf("beneficiary_id is required")
	}
	return r.list(ctx, kind, "WHERE b."+ledgerTables[kind].beneficiaryCol+" = $1", beneficiaryID)
}

func (r *PostgresLedgerRepo) ListAllBonuses(ctx context.Context, kind domain.BonusKind) ([]domain.Bonus, error) {
	return r.list(ctx, kind, "")
}

func (r *PostgresLedgerRepo) list(ctx context.Context, kind domain.BonusKind, where string, args ...any) ([]domain.Bonus, error) {
	t, err := ledgerFor(kind)
	if err != nil {
		return nil, err
	}
	triggered := "b." + t.beneficiaryCol
	if t.triggeredCol != "" {
		triggered = "b." + t.triggeredCol
	}
	query := fmt.Sprintf(`
		SELECT b.bonus_id, b.%s, %s, b.%s, b.deal_number, b.amount, b.created_at,
		       COALESCE(a.name, ''), COALESCE(c.client_name, '')
		FROM %s b
		LEFT JOIN agents a ON a.agent_id = %s
		LEFT JOIN clients c ON c.client_id = b.%s
		%s
		ORDER BY b.%s, b.deal_number`,
		t.beneficiaryCol, triggered, t.clientCol, t.name, triggered, t.clientCol, where, t.beneficiaryCol)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s bonuses: %w", kind, err)
	}
	defer rows.Close()

	var out []domain.Bonus
	for rows.Next() {
		b := domain.Bonus{Kind: kind}
		if err := rows.Scan(
			&b.BonusID, &b.BeneficiaryID, &b.TriggeredByAgentID, &b.ClientID,
			&b.DealNumber, &b.Amount, &b.CreatedAt, &b.TriggeredByAgentName, &b.ClientName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bonus: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
