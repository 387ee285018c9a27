package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/savingsguru/dealflow/internal/catalog"
	"github.com/savingsguru/dealflow/internal/cli"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/pipeline"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Prune and re-rank the catalog without fetching anything",
		Long: `Apply the catalog lifecycle rules to the stored deals: age out entries past
the freshness window, enforce the count cap, and recompute featured flags.
No network requests are made and no new deals are added.`,
		RunE: runReconcile,
	}

	cmd.Flags().Bool("dry-run", false, "Preview without saving the catalog")
	_ = viper.BindPFlag("reconcile.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runReconcile(_ *cobra.Command, _ []string) error {
	cfg := config.Load()

	manager := catalog.NewManager(cfg)
	merged, stats, err := manager.Reconcile(nil, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reconcile catalog: %w", err)
	}
	featured := pipeline.MarkFeatured(merged, cfg.FeaturedThreshold, cfg.MaxFeatured)

	if viper.GetBool("reconcile.dry_run") {
		fmt.Println(cli.FormatWarning("Dry run: catalog not saved"))
	} else if err := manager.Save(merged); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Catalog reconciled: %d deals kept (%d featured), %d slots below target",
		stats.Final, featured, stats.TargetRemaining)))
	return nil
}
