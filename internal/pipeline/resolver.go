// Package pipeline orchestrates product resolution and deal construction.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/savingsguru/dealflow/internal/model"
	"github.com/savingsguru/dealflow/internal/service"
)

// Resolver walks a list of identifiers through the source chain: the
// structured API first, the page scraper when that fails, skip when both
// fail. Identifiers are processed strictly one at a time so the per-source
// rate limits hold.
type Resolver struct {
	primary  service.ProductSource
	fallback service.ProductSource
	logger   *slog.Logger

	// Progress, when set, is called after each identifier completes.
	Progress func(done, total int, asin string)
}

// NewResolver creates a resolver over a primary and fallback source.
func NewResolver(primary, fallback service.ProductSource) *Resolver {
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default().With("component", "resolver"),
	}
}

// Result is the outcome of resolving a batch of identifiers.
type Result struct {
	Products    map[string]*model.Product
	Session     *model.Session
	Resolutions []service.Resolution
}

// Resolve processes each identifier in order. Cancellation between
// identifiers stops the walk but keeps everything resolved so far; partial
// results are always worth reconciling.
func (r *Resolver) Resolve(ctx context.Context, asins []string) *Result {
	session := model.NewSession()
	result := &Result{
		Products: make(map[string]*model.Product, len(asins)),
		Session:  session,
	}

	for i, asin := range asins {
		if ctx.Err() != nil {
			session.AddError(fmt.Sprintf("stopped after %d of %d identifiers: %v", i, len(asins), ctx.Err()))
			break
		}

		session.Attempted++
		product, res := r.resolveOne(ctx, asin, session)
		result.Resolutions = append(result.Resolutions, res)

		if product != nil {
			session.Succeeded++
			result.Products[product.ASIN] = product
		} else {
			session.Skipped++
		}

		if r.Progress != nil {
			r.Progress(i+1, len(asins), asin)
		}
	}

	session.Complete()
	r.logger.Info("Resolution finished",
		"attempted", session.Attempted,
		"succeeded", session.Succeeded,
		"skipped", session.Skipped,
		"api_calls", session.APICalls,
		"scrape_calls", session.ScrapeCalls)
	return result
}

// resolveOne runs the source chain for a single identifier. A failure in one
// source never aborts the batch; it just moves to the next source or skips.
func (r *Resolver) resolveOne(ctx context.Context, asin string, session *model.Session) (*model.Product, service.Resolution) {
	res := service.Resolution{ASIN: asin}

	if r.primary != nil && r.primary.Healthy() {
		session.APICalls++
		product, err := r.primary.Resolve(ctx, asin)
		if err == nil {
			return r.accept(product, &res)
		}
		r.logger.Debug("Primary source failed, trying fallback", "asin", asin, "error", err)
	}

	if r.fallback != nil {
		session.ScrapeCalls++
		product, err := r.fallback.Resolve(ctx, asin)
		if err == nil {
			return r.accept(product, &res)
		}
		res.Note = err.Error()
		session.AddError(fmt.Sprintf("%s: %v", asin, err))
	} else {
		res.Note = "no source available"
		session.AddError(fmt.Sprintf("%s: no source available", asin))
	}

	r.logger.Warn("Identifier skipped, no source produced data", "asin", asin)
	return nil, res
}

func (r *Resolver) accept(product *model.Product, res *service.Resolution) (*model.Product, service.Resolution) {
	res.Resolved = true
	res.Source = product.Source
	res.Title = product.Title
	if product.CurrentPrice != nil {
		res.Price = *product.CurrentPrice
	}
	return product, *res
}
