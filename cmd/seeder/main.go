package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/quocanhngo/recovery/internal/config"
	"github.com/quocanhngo/recovery/internal/model"
	"github.com/quocanhngo/recovery/internal/repository"
	"github.com/quocanhngo/recovery/migrations"
	"github.com/quocanhngo/recovery/pkg/password"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()

	root := &cobra.Command{
		Use:          "seeder",
		Short:        "Database maintenance for the recovery API",
		SilenceUsage: true,
	}
	root.AddCommand(seedCommand(cfg, log), migrateCommand(cfg, log))

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func seedCommand(cfg *config.Config, log *zap.Logger) *cobra.Command {
	var (
		count     int
		plainPass string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo accounts that can go through password recovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !password.IsStrong(plainPass) {
				return fmt.Errorf("seed password rejected: %s", password.Describe(password.Violations(plainPass)))
			}

			// Force DB logging off to avoid noise
			db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
				Logger:         logger.Default.LogMode(logger.Silent),
				TranslateError: true,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			hashed, err := password.NewHasher(cfg.Password.BcryptCost).Hash(plainPass)
			if err != nil {
				return err
			}

			return seedAccounts(cmd.Context(), repository.NewAccountRepository(db), hashed, count, log)
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of accounts to create")
	cmd.Flags().StringVar(&plainPass, "password", "Passw0rd!", "password shared by all seeded accounts")
	return cmd
}

func seedAccounts(ctx context.Context, repo *repository.AccountRepository, hashed string, count int, log *zap.Logger) error {
	log.Info("seeding accounts", zap.Int("count", count))

	for i := 1; i <= count; i++ {
		email := fmt.Sprintf("user%d@recovery.local", i)

		account := &model.Account{
			ID:       uuid.New(),
			Name:     fmt.Sprintf("User Number %d", i),
			Email:    email,
			Password: hashed,
		}
		if err := repo.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				log.Debug("account already exists", zap.String("email", email))
				continue
			}
			return fmt.Errorf("failed to create %s: %w", email, err)
		}
		log.Info("created account", zap.String("email", email))
	}

	log.Info("seeding completed")
	return nil
}

func migrateCommand(cfg *config.Config, log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrations.Run(cfg.DB.URL(), log)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrations.Rollback(cfg.DB.URL(), log)
			},
		},
	)
	return cmd
}
