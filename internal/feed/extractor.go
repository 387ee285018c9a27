package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/model"
	"github.com/savingsguru/dealflow/internal/service"
)

const maxDescriptionLength = 300

// Selector fallbacks for the blog's post listing markup.
var (
	postSelectors = []string{
		"article",
		".post",
		".blog-post",
	}
	postTitleSelectors = []string{
		"h2.entry-title a",
		"h2 a",
		"h1.entry-title a",
		".post-title a",
	}
	postExcerptSelectors = []string{
		".entry-content",
		".entry-summary",
		".post-content",
	}
)

// Extractor fetches blog listing pages and turns them into posts with
// their Amazon links resolved to ASINs.
type Extractor struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        config.Config
	baseURL    string
}

// NewExtractor creates a feed extractor for the configured blog.
func NewExtractor(cfg config.Config) *Extractor {
	return &Extractor{
		cfg:        cfg,
		baseURL:    strings.TrimSuffix(cfg.FeedBaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     slog.Default().With("component", "feed"),
	}
}

// FetchPosts walks the listing pages until a page yields no posts or the
// page cap is reached. Only posts that link to at least one recognizable
// Amazon product survive.
func (e *Extractor) FetchPosts(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	for page := 1; page <= e.cfg.MaxPages; page++ {
		pagePosts, err := e.fetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			e.logger.Warn("Stopping pagination after fetch failure", "page", page, "error", err)
			break
		}
		if len(pagePosts) == 0 {
			break
		}
		posts = append(posts, pagePosts...)
	}

	e.logger.Info("Feed scan complete", "posts", len(posts))
	return posts, nil
}

// ASINs returns the unique ASINs across all posts, first-seen order, along
// with a lookup from ASIN to originating post.
func (e *Extractor) ASINs(posts []model.Post) ([]string, map[string]*model.Post) {
	seen := make(map[string]bool)
	byASIN := make(map[string]*model.Post)
	var asins []string
	for i := range posts {
		for _, asin := range posts[i].ASINs {
			if seen[asin] {
				continue
			}
			seen[asin] = true
			byASIN[asin] = &posts[i]
			asins = append(asins, asin)
		}
	}
	return asins, byASIN
}

func (e *Extractor) pageURL(page int) string {
	if page <= 1 {
		return e.baseURL + "/"
	}
	return fmt.Sprintf("%s/page/%d/", e.baseURL, page)
}

func (e *Extractor) fetchPage(ctx context.Context, page int) ([]model.Post, error) {
	var doc *goquery.Document
	err := common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, e.pageURL(page), nil)
		if reqErr != nil {
			return &common.RetryableError{Err: reqErr, Retryable: false}
		}
		req.Header.Set("User-Agent", "dealflow/1.0 (+https://www.savingsguru.ca)")

		resp, doErr := e.httpClient.Do(req)
		if doErr != nil {
			return &common.RetryableError{Err: doErr, Retryable: true}
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// Past the last page; an empty document ends pagination.
			doc = nil
			return nil
		case resp.StatusCode != http.StatusOK:
			return &common.RetryableError{
				Err:       fmt.Errorf("status %d fetching page %d", resp.StatusCode, page),
				Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			}
		}

		parsed, parseErr := goquery.NewDocumentFromReader(resp.Body)
		if parseErr != nil {
			return &common.RetryableError{Err: parseErr, Retryable: false}
		}
		doc = parsed
		return nil
	}, service.RetryOptions{
		MaxAttempts:  e.cfg.MaxRetryAttempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", page, err)
	}
	if doc == nil {
		return nil, nil
	}

	return e.parsePosts(doc), nil
}

func (e *Extractor) parsePosts(doc *goquery.Document) []model.Post {
	var posts []model.Post
	for _, sel := range postSelectors {
		doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
			if post, ok := e.parsePost(node); ok {
				posts = append(posts, post)
			}
		})
		if len(posts) > 0 {
			break
		}
	}
	return posts
}

// parsePost builds a Post from one listing entry. Posts without a title or
// without any Amazon product link are not candidates.
func (e *Extractor) parsePost(node *goquery.Selection) (model.Post, bool) {
	var title, postURL string
	for _, sel := range postTitleSelectors {
		link := node.Find(sel).First()
		if t := strings.TrimSpace(link.Text()); t != "" {
			title = t
			postURL, _ = link.Attr("href")
			break
		}
	}
	if title == "" {
		return model.Post{}, false
	}

	var links []string
	node.Find(`a[href*="amazon."], a[href*="amzn.to"]`).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			links = append(links, href)
		}
	})
	asins := UniqueASINs(links)
	if len(asins) == 0 {
		return model.Post{}, false
	}

	description := ""
	for _, sel := range postExcerptSelectors {
		if text := strings.TrimSpace(node.Find(sel).First().Text()); text != "" {
			description = strings.Join(strings.Fields(text), " ")
			break
		}
	}
	if len(description) > maxDescriptionLength {
		description = strings.TrimSpace(description[:maxDescriptionLength])
	}

	return model.Post{
		ID:          slugFromURL(postURL, title),
		Title:       title,
		URL:         postURL,
		Category:    model.CategorizeTitle(title),
		Description: description,
		AmazonLinks: links,
		ASINs:       asins,
		ScrapedAt:   time.Now().UTC(),
	}, true
}

func slugFromURL(rawURL, title string) string {
	trimmed := strings.Trim(rawURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
		return trimmed[idx+1:]
	}
	slug := strings.ToLower(strings.Join(strings.Fields(title), "-"))
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return slug
}
