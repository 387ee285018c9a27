// Package catalog manages the persisted deals catalog: loading, freshness,
// deduplication, quality filtering, and the count cap.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/model"
)

// Manager owns the catalog lifecycle. It never fabricates entries; deals
// only enter through Reconcile and only leave by aging out, deduplication,
// the quality bar, or the count cap.
type Manager struct {
	logger *slog.Logger
	cfg    config.Config
}

// NewManager creates a catalog manager.
func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: slog.Default().With("component", "catalog"),
	}
}

// Stats summarizes one reconciliation pass.
type Stats struct {
	Existing        int
	NewAccepted     int
	Final           int
	Added           int
	TargetRemaining int
}

// Load reads the catalog file. A missing file is a normal first run and
// yields an empty catalog; a file that exists but cannot be parsed is an
// error, because silently discarding it would wipe the catalog on the next
// save.
func (m *Manager) Load() ([]model.Deal, error) {
	data, err := os.ReadFile(m.cfg.CatalogPath)
	if os.IsNotExist(err) {
		m.logger.Info("No existing catalog, starting empty", "path", m.cfg.CatalogPath)
		return []model.Deal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", common.ErrCatalogIO, m.cfg.CatalogPath, err)
	}

	var raw []model.Deal
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", common.ErrCatalogIO, m.cfg.CatalogPath, err)
	}

	// Individual broken entries are dropped, not fatal; the rest of the
	// catalog is still good data.
	deals := make([]model.Deal, 0, len(raw))
	for _, deal := range raw {
		if err := deal.Validate(); err != nil {
			m.logger.Warn("Skipping invalid catalog entry", "id", deal.ID, "error", err)
			continue
		}
		deals = append(deals, deal)
	}
	return deals, nil
}

// Save writes the catalog atomically: marshal to a temp file in the target
// directory, then rename over the destination.
func (m *Manager) Save(deals []model.Deal) error {
	dir := filepath.Dir(m.cfg.CatalogPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", common.ErrCatalogIO, dir, err)
	}

	data, err := json.MarshalIndent(deals, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding catalog: %v", common.ErrCatalogIO, err)
	}

	tmp, err := os.CreateTemp(dir, ".deals-*.json")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", common.ErrCatalogIO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: writing catalog: %v", common.ErrCatalogIO, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp file: %v", common.ErrCatalogIO, err)
	}
	if err := os.Rename(tmpName, m.cfg.CatalogPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", common.ErrCatalogIO, m.cfg.CatalogPath, err)
	}

	m.logger.Info("Catalog saved", "path", m.cfg.CatalogPath, "deals", len(deals))
	return nil
}

// Reconcile merges newly built deals into the stored catalog and returns the
// merged result with per-stage stats. It does not save; the caller decides
// when the result is final (featured flags are recomputed on the merged set
// first).
func (m *Manager) Reconcile(incoming []model.Deal, now time.Time) ([]model.Deal, Stats, error) {
	existing, err := m.Load()
	if err != nil {
		return nil, Stats{}, err
	}

	fresh := m.FilterFresh(existing, now)
	if dropped := len(existing) - len(fresh); dropped > 0 {
		m.logger.Info("Expired deals removed", "count", dropped)
	}

	accepted := m.FilterQuality(m.Deduplicate(fresh, incoming))
	merged := m.CapCount(append(fresh, accepted...))

	stats := Stats{
		Existing:    len(fresh),
		NewAccepted: len(accepted),
		Final:       len(merged),
		Added:       len(merged) - len(fresh),
	}
	if remaining := m.cfg.TargetDealCount - stats.Final; remaining > 0 {
		stats.TargetRemaining = remaining
	}

	m.logger.Info("Catalog reconciled",
		"existing", stats.Existing,
		"new_accepted", stats.NewAccepted,
		"final", stats.Final,
		"added", stats.Added,
		"target_remaining", stats.TargetRemaining)
	return merged, stats, nil
}

// FilterFresh keeps deals added within the freshness window. A deal whose
// timestamp cannot be parsed is kept; age must be proven before an entry is
// discarded.
func (m *Manager) FilterFresh(deals []model.Deal, now time.Time) []model.Deal {
	fresh := make([]model.Deal, 0, len(deals))
	for _, deal := range deals {
		added, err := parseDateAdded(deal.DateAdded)
		if err != nil {
			m.logger.Warn("Deal has unparsable dateAdded, keeping it", "id", deal.ID, "dateAdded", deal.DateAdded)
			fresh = append(fresh, deal)
			continue
		}
		if now.Sub(added) <= m.cfg.FreshnessWindow {
			fresh = append(fresh, deal)
		}
	}
	return fresh
}

// Deduplicate returns the incoming deals whose ASIN is not already in the
// catalog, also collapsing duplicates within the incoming batch itself.
func (m *Manager) Deduplicate(existing, incoming []model.Deal) []model.Deal {
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, deal := range existing {
		seen[deal.ASIN] = true
	}

	unique := make([]model.Deal, 0, len(incoming))
	for _, deal := range incoming {
		if seen[deal.ASIN] {
			m.logger.Debug("Duplicate deal skipped", "asin", deal.ASIN)
			continue
		}
		seen[deal.ASIN] = true
		unique = append(unique, deal)
	}
	return unique
}

// FilterQuality drops deals whose discount is known and below the minimum.
// A deal with no discount information passes; the bar applies only to
// discounts that were actually verified.
func (m *Manager) FilterQuality(deals []model.Deal) []model.Deal {
	kept := make([]model.Deal, 0, len(deals))
	for _, deal := range deals {
		if deal.DiscountPercent != nil && *deal.DiscountPercent < m.cfg.MinDiscountPercent {
			m.logger.Debug("Deal below discount bar", "asin", deal.ASIN, "discount", *deal.DiscountPercent)
			continue
		}
		kept = append(kept, deal)
	}
	return kept
}

// CapCount trims the catalog to the target size, dropping the lowest
// priority deals: featured entries outrank unfeatured ones, then higher
// discounts, then newer dateAdded values.
func (m *Manager) CapCount(deals []model.Deal) []model.Deal {
	if len(deals) <= m.cfg.TargetDealCount {
		return deals
	}

	sorted := make([]model.Deal, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Featured != sorted[b].Featured {
			return sorted[a].Featured
		}
		da, db := discountOf(sorted[a]), discountOf(sorted[b])
		if da != db {
			return da > db
		}
		// RFC 3339 timestamps order lexicographically.
		return sorted[a].DateAdded > sorted[b].DateAdded
	})

	m.logger.Info("Catalog capped", "before", len(deals), "after", m.cfg.TargetDealCount)
	return sorted[:m.cfg.TargetDealCount]
}

func discountOf(d model.Deal) int {
	if d.DiscountPercent == nil {
		return -1
	}
	return *d.DiscountPercent
}

// parseDateAdded accepts RFC 3339 and the older timezone-less format that
// earlier catalog versions wrote.
func parseDateAdded(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
