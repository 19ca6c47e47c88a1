package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rivoaiteam/rivo-partners/internal/app"
	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/export"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
	"github.com/rivoaiteam/rivo-partners/internal/service"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RequireDB(); err != nil {
					return err
				}
				applied, err := repository.Migrate(ctx, a.DB, a.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
				return nil
			})
		},
	}
}

func seedConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-config",
		Short: "Insert default app_config rows that do not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				created, err := a.ConfigStore.Seed(ctx)
				if err != nil {
					return err
				}
				if cached, ok := a.Config.(*appconfig.CachedSource); ok && len(created) > 0 {
					cached.Invalidate(ctx)
				}
				out := cmd.OutOrStdout()
				for _, key := range created {
					fmt.Fprintf(out, "Created: %s\n", key)
				}
				fmt.Fprintf(out, "Config seeded: %d created, %d already present\n", len(created), len(appconfig.SeedData)-len(created))
				return nil
			})
		},
	}
}

func syncCRMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-crm-status",
		Short: "Pull lead statuses from Rivo CRM and apply them",
		Long: `Fetches the pipeline status of every non-terminal client that has a
CRM lead id and runs it through the status pipeline, so disbursals
award bonuses exactly as the webhook would.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sync := a.CRMSync()
				if sync == nil {
					return errors.New("RIVO_CRM_BASE_URL is not set")
				}
				report, err := sync.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d lead(s): %d updated, %d unchanged, %d error(s)\n",
					report.Total, report.Updated, report.Unchanged, report.Errors)
				return nil
			})
		},
	}
}

func nudgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-inactive-nudges",
		Short: "WhatsApp agents who have not referred a client recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sent, err := a.Nudger.Run(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %d nudge(s)\n", sent)
				return nil
			})
		},
	}
}

func exportBonusesCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-bonuses",
		Short: "Write both bonus ledgers to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				referral, err := a.Store.Ledger().ListAllBonuses(ctx, domain.BonusKindReferrer)
				if err != nil {
					return err
				}
				newAgent, err := a.Store.Ledger().ListAllBonuses(ctx, domain.BonusKindNewAgent)
				if err != nil {
					return err
				}
				data, err := export.BonusLedgerWorkbook(referral, newAgent)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = fmt.Sprintf("rivo-bonuses-%s.xlsx", time.Now().UTC().Format("20060102"))
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d referral and %d new agent bonus(es) to %s\n", len(referral), len(newAgent), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default rivo-bonuses-YYYYMMDD.xlsx)")
	return cmd
}

func updateStatusCmd() *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "update-status [client-id] [status]",
		Short: "Move a client to a new pipeline status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			u := service.StatusUpdate{Ref: domain.ClientByID(args[0]), NewStatus: status}
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil || d.IsNegative() {
					return fmt.Errorf("invalid --amount %q", amount)
				}
				u.Amount = &d
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Pipeline.Process(ctx, u)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s -> %s\n", args[0], res.Transition.Old, res.Transition.New)
				if b := res.Allocation.NewAgentBonus; b != nil {
					fmt.Fprintf(out, "New agent bonus #%d: AED %s\n", b.DealNumber, b.Amount.StringFixed(2))
				}
				if b := res.Allocation.ReferrerBonus; b != nil {
					fmt.Fprintf(out, "Referrer bonus #%d: AED %s\n", b.DealNumber, b.Amount.StringFixed(2))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "mortgage amount in AED")
	return cmd
}

func linkReferrerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link-referrer [agent-id] [referrer-id]",
		Short: "Set an agent's referrer when none is set yet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				linked, err := a.Agents.SetReferrer(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !linked {
					fmt.Fprintln(cmd.OutOrStdout(), "Agent already has a referrer, nothing changed")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Linked %s -> %s\n", args[0], args[1])
				return nil
			})
		},
	}
}
