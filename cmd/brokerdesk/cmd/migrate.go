package cmd

import (
	"github.com/brokerdesk/internal/database"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables, seed the instrument catalog and the first super admin",
	Long: `Migrate brings the schema up to date, then seeds the default instruments
and, when bootstrap.admin_email is set, a super admin account.

Every step is idempotent.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := database.Migrate(rt.db); err != nil {
		return err
	}
	rt.logger.Info("schema migrated")

	instruments := service.NewInstrumentService(repository.NewInstrumentRepository(rt.db), nil)
	seeded, err := instruments.SeedDefaults()
	if err != nil {
		return err
	}
	rt.logger.Info("instrument catalog seeded", zap.Int("created", seeded))

	boot := rt.cfg.Bootstrap
	if boot.AdminEmail == "" {
		return nil
	}
	admins := service.NewAdminService(repository.NewAdminRepository(rt.db), repository.NewUserRepository(rt.db))
	created, err := admins.EnsureSuperAdmin(boot.AdminEmail, boot.AdminPassword)
	if err != nil {
		return err
	}
	rt.logger.Info("super admin checked", zap.String("email", boot.AdminEmail), zap.Bool("created", created))
	return nil
}
