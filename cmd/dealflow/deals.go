package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/savingsguru/dealflow/internal/catalog"
	"github.com/savingsguru/dealflow/internal/cli"
	"github.com/savingsguru/dealflow/internal/config"
)

func dealsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deals",
		Short: "Show the current catalog",
		RunE:  runDeals,
	}
}

func runDeals(_ *cobra.Command, _ []string) error {
	cfg := config.Load()

	manager := catalog.NewManager(cfg)
	deals, err := manager.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(deals) == 0 {
		fmt.Println(cli.FormatInfo("The catalog is empty; run 'dealflow scrape' to fill it"))
		return nil
	}

	summary := catalog.Summarize(deals)

	var b strings.Builder
	b.WriteString(cli.TitleStyle.Render(cli.ChartIcon + " Catalog overview"))
	b.WriteString(fmt.Sprintf("\n\nDeals: %d (%d featured)\n", summary.Total, summary.Featured))
	b.WriteString(fmt.Sprintf("Discounts: avg %.0f%%, best %d%%\n", summary.AvgDiscount, summary.MaxDiscount))

	b.WriteString("\n" + cli.TableHeaderStyle.Render("By category") + "\n")
	for _, line := range countLines(summary.ByCategory) {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + cli.TableHeaderStyle.Render("By source") + "\n")
	for _, line := range countLines(summary.BySource) {
		b.WriteString(line + "\n")
	}

	fmt.Println(cli.BoxStyle.Render(strings.TrimRight(b.String(), "\n")))
	return nil
}

// countLines renders a name-to-count map as aligned lines, largest first.
func countLines(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		if counts[names[a]] != counts[names[b]] {
			return counts[names[a]] > counts[names[b]]
		}
		return names[a] < names[b]
	})

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s%d", cli.TableCellStyle.Render(name), counts[name]))
	}
	return lines
}
