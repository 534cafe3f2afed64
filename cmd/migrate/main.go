package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gharkhoj/gharkhoj/internal/config"
	"github.com/gharkhoj/gharkhoj/internal/db"
	"github.com/gharkhoj/gharkhoj/internal/observ"
)

func main() {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the GharKhoj database schema",
		SilenceUsage: true,
	}

	root.AddCommand(upCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*db.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return db.New(ctx, cfg.DatabaseURL, logger)
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			return database.Migrate(cmd.Context())
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			applied, err := database.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("no migrations applied")
				return nil
			}
			for _, name := range applied {
				fmt.Println(name)
			}
			return nil
		},
	}
}
