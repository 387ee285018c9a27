package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savingsguru/dealflow/internal/catalog"
	"github.com/savingsguru/dealflow/internal/cli"
	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/paapi"
	"github.com/savingsguru/dealflow/internal/storage"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, credentials, and local state",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	failed := false

	report := func(ok bool, okMsg, failMsg string) {
		if ok {
			fmt.Println(cli.FormatSuccess(okMsg))
		} else {
			fmt.Println(cli.FormatError(failMsg))
			failed = true
		}
	}

	credErr := cfg.ValidateCredentials()
	switch {
	case credErr == nil:
		report(true, "Amazon credentials configured", "")
	case errors.Is(credErr, common.ErrMissingConfig):
		report(false, "", "Amazon credentials missing: "+credErr.Error())
	default:
		report(false, "", "Amazon credentials invalid: "+credErr.Error())
	}

	if err := cfg.Validate(); err != nil && credErr == nil {
		report(false, "", "Configuration invalid: "+err.Error())
	}

	if client, err := paapi.NewClient(cfg); err == nil {
		report(client.Healthy(),
			fmt.Sprintf("API client ready for marketplace %s", cfg.Marketplace),
			"API client is not healthy")
	} else {
		report(false, "", "API client: "+err.Error())
	}

	manager := catalog.NewManager(cfg)
	if deals, err := manager.Load(); err == nil {
		report(true, fmt.Sprintf("Catalog readable at %s (%d deals)", cfg.CatalogPath, len(deals)), "")
	} else {
		report(false, "", "Catalog: "+err.Error())
	}

	store, err := storage.NewSQLiteStore(cfg.HistoryDBPath)
	if err == nil {
		defer func() { _ = store.Close() }()
		err = store.Migrate(cmd.Context())
	}
	report(err == nil,
		fmt.Sprintf("History database ready at %s", cfg.HistoryDBPath),
		fmt.Sprintf("History database: %v", err))

	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
