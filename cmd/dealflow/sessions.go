package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/savingsguru/dealflow/internal/cli"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/storage"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent resolution sessions",
		RunE:  runSessions,
	}

	cmd.Flags().IntP("limit", "n", 10, "Number of sessions to show")
	_ = viper.BindPFlag("sessions.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runSessions(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()

	store, err := storage.NewSQLiteStore(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}

	sessions, err := store.ListSessions(ctx, viper.GetInt("sessions.limit"))
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println(cli.FormatInfo("No sessions recorded yet"))
		return nil
	}

	fmt.Println(cli.TableHeaderStyle.Render("session                          started           resolved  api  scraped"))
	for _, s := range sessions {
		fmt.Printf("%-32s %s  %3d/%-3d  %4d  %7d\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Succeeded, s.Attempted,
			s.APICalls, s.ScrapeCalls)
	}
	return nil
}
