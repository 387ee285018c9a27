package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/savingsguru/dealflow/internal/catalog"
	"github.com/savingsguru/dealflow/internal/cli"
	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/feed"
	"github.com/savingsguru/dealflow/internal/model"
	"github.com/savingsguru/dealflow/internal/paapi"
	"github.com/savingsguru/dealflow/internal/pipeline"
	"github.com/savingsguru/dealflow/internal/scrape"
	"github.com/savingsguru/dealflow/internal/storage"
)

func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Discover deals and update the catalog",
		Long: `Run the full pipeline: scan the blog for Amazon links, resolve each ASIN
through the Product Advertising API (falling back to page scraping), and
reconcile the verified deals into the published catalog.

Examples:
  dealflow scrape               # Full run with configured limits
  dealflow scrape --dry-run     # Resolve and reconcile, but do not save
  dealflow scrape --max-pages 3 # Scan only the first three blog pages`,
		RunE: runScrape,
	}

	cmd.Flags().Bool("dry-run", false, "Preview without saving the catalog")
	cmd.Flags().Int("max-pages", 0, "Override the blog page cap")

	_ = viper.BindPFlag("scrape.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("scrape.max_pages_override", cmd.Flags().Lookup("max-pages"))

	return cmd
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if override := viper.GetInt("scrape.max_pages_override"); override > 0 {
		cfg.MaxPages = override
	}
	// Missing or placeholder credentials must stop the run before any
	// network activity.
	if err := cfg.Validate(); err != nil {
		return common.NewUserError("configuration is not ready; run 'dealflow check'", err)
	}
	dryRun := viper.GetBool("scrape.dry_run")

	interrupts := cli.NewInterruptHandler(os.Stdout)
	ctx := interrupts.HandleInterrupts(cmd.Context())

	slog.Info("Starting deal discovery", "marketplace", cfg.Marketplace, "target", cfg.TargetDealCount)

	// Stage 1: find candidates on the blog.
	extractor := feed.NewExtractor(cfg)
	var posts []model.Post
	if _, err := common.Timed("blog scan", func() error {
		var fetchErr error
		posts, fetchErr = extractor.FetchPosts(ctx)
		return fetchErr
	}); err != nil {
		return fmt.Errorf("failed to scan blog: %w", err)
	}
	asins, postsByASIN := extractor.ASINs(posts)
	if len(asins) == 0 {
		fmt.Println(cli.FormatWarning("No Amazon product links found on the blog"))
		return nil
	}
	fmt.Println(cli.FormatInfo(fmt.Sprintf("Found %d candidate products across %d posts", len(asins), len(posts))))

	// Stage 2: resolve each candidate to verified product data.
	primary, err := paapi.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	resolver := pipeline.NewResolver(primary, scrape.NewClient(cfg))

	bar := progressbar.NewOptions(len(asins),
		progressbar.OptionSetDescription("Resolving products"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	resolver.Progress = func(_, _ int, _ string) {
		_ = bar.Add(1)
	}

	result := resolver.Resolve(ctx, asins)
	_ = bar.Finish()

	// Stage 3: build deals and reconcile the catalog. This runs even after
	// an interrupt; partial results are real data.
	deals := pipeline.BuildDeals(result.Products, postsByASIN, cfg)
	manager := catalog.NewManager(cfg)
	merged, stats, err := manager.Reconcile(deals, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reconcile catalog: %w", err)
	}
	featured := pipeline.MarkFeatured(merged, cfg.FeaturedThreshold, cfg.MaxFeatured)

	if dryRun {
		fmt.Println(cli.FormatWarning("Dry run: catalog not saved"))
	} else {
		if err := manager.Save(merged); err != nil {
			return fmt.Errorf("failed to save catalog: %w", err)
		}
	}

	recordRun(ctx, cfg, result)

	printRunSummary(result.Session, stats, featured, interrupts.WasInterrupted())
	return nil
}

// recordRun persists the session and its outcomes. History is diagnostics,
// not catalog data; a failure here only logs.
func recordRun(ctx context.Context, cfg config.Config, result *pipeline.Result) {
	store, err := storage.NewSQLiteStore(cfg.HistoryDBPath)
	if err != nil {
		slog.Error("Failed to open history database", "error", err)
		return
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close history database", "error", closeErr)
		}
	}()

	// Saving history must survive the interrupt that stopped the run.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := store.Migrate(ctx); err != nil {
		slog.Error("Failed to migrate history database", "error", err)
		return
	}
	if err := store.SaveSession(ctx, result.Session); err != nil {
		slog.Error("Failed to save session", "error", err)
		return
	}
	if err := store.SaveResolutions(ctx, result.Session.ID, result.Resolutions); err != nil {
		slog.Error("Failed to save resolutions", "error", err)
	}
}

func printRunSummary(session *model.Session, stats catalog.Stats, featured int, interrupted bool) {
	title := cli.TitleStyle.Render(cli.DealIcon + " Run summary")
	if interrupted {
		title = cli.TitleStyle.Render(cli.WarningIcon + " Run summary (interrupted)")
	}

	body := fmt.Sprintf(
		"%s\n\nResolved %d of %d products (%d API, %d scraped, %d skipped)\n\nCatalog: %d existing + %d new = %d deals (%d featured)\nRemaining to target: %d",
		title,
		session.Succeeded, session.Attempted,
		session.APICalls, session.ScrapeCalls, session.Skipped,
		stats.Existing, stats.NewAccepted, stats.Final, featured,
		stats.TargetRemaining,
	)
	fmt.Println(cli.BoxStyle.Render(body))

	if len(session.Errors) > 0 {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d identifiers had errors; see logs or run 'dealflow sessions'", len(session.Errors))))
	}
}
