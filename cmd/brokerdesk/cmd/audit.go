package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/brokerdesk/internal/app"
	"github.com/brokerdesk/internal/events"
	"github.com/brokerdesk/internal/pricing"
	"github.com/brokerdesk/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var auditFix bool

var auditCmd = &cobra.Command{
	Use:   "audit-pnl",
	Short: "Re-derive the P&L of every closed trade and report divergences",
	Long: `Audit-pnl recomputes the realized P&L of every closed trade from its
prices and prints the trades whose stored value differs as JSON.

With --fix, divergences that were not entered manually are restored to the
formula value and the trading account is adjusted by the difference.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().BoolVar(&auditFix, "fix", false, "restore non-manual divergences")
}

func runAudit(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	// closed trades never need a live quote
	quotes := pricing.NewService(repository.NewInstrumentRepository(rt.db), rt.cfg.Pricing.StaleAfter, rt.logger.Named("pricing"))
	a, err := app.New(rt.db, quotes, events.Nop{}, app.OptionsFrom(rt.cfg, Version), rt.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	found, err := a.Trades.AuditPnL(context.Background(), auditFix)
	if err != nil {
		return err
	}
	rt.logger.Info("pnl audit done", zap.Int("divergences", len(found)), zap.Bool("fix", auditFix))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(found)
}
