package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

const (
	internalSourceName = "سولف PDF"
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	unknownAuthor      = "غير معروف"
	noDescription      = "لا يوجد وصف"

	maxItemsPerSource = 10
	internalLimit     = 20
	fetchTimeout      = 10 * time.Second
)

// ErrInvalidQuery rejects queries too short to search before any network call.
var ErrInvalidQuery = errors.New("search query must be at least 2 characters")

// Result is one normalized hit from either an external catalog or our own.
// It is never persisted.
type Result struct {
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Link        string     `json:"link,omitempty"`
	Cover       string     `json:"cover,omitempty"`
	Description string     `json:"description,omitempty"`
	External    bool       `json:"external"`
	BookID      *uuid.UUID `json:"bookId,omitempty"`
}

// CatalogSearcher is the slice of the book repo the scraper needs for the
// internal half of a search.
type CatalogSearcher interface {
	SearchCatalog(ctx context.Context, query string, limit int) ([]*types.Book, error)
}

type Service struct {
	log     *logger.Logger
	sources []Source
	client  *http.Client
	catalog CatalogSearcher

	cache    *redis.Client // optional; nil disables caching
	cacheTTL time.Duration
}

func NewService(baseLog *logger.Logger, catalog CatalogSearcher, sources []Source, cache *redis.Client) *Service {
	if sources == nil {
		sources = DefaultSources()
	}
	return &Service{
		log:      baseLog.With("service", "ScraperService"),
		sources:  sources,
		client:   &http.Client{Timeout: fetchTimeout},
		catalog:  catalog,
		cache:    cache,
		cacheTTL: 10 * time.Minute,
	}
}

// Search fans out to every registered source concurrently, then appends
// internal catalog matches. A failing source contributes zero results and
// never fails the search.
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return nil, ErrInvalidQuery
	}

	if cached, ok := s.cacheGet(ctx, query); ok {
		return cached, nil
	}

	perSource := make([][]Result, len(s.sources))
	var g errgroup.Group
	for i := range s.sources {
		i := i
		src := s.sources[i]
		g.Go(func() error {
			items, err := s.fetchSource(ctx, src, query)
			if err != nil {
				s.log.Warn("External source search failed", "source", src.Name, "error", err)
				return nil
			}
			perSource[i] = items
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(s.sources)*maxItemsPerSource)
	for _, items := range perSource {
		results = append(results, items...)
	}

	if s.catalog != nil {
		books, err := s.catalog.SearchCatalog(ctx, query, internalLimit)
		if err != nil {
			s.log.Warn("Internal catalog search failed", "error", err)
		} else {
			for _, b := range books {
				id := b.ID
				results = append(results, Result{
					Source:      internalSourceName,
					Title:       b.Title,
					Author:      b.Author,
					Cover:       b.CoverImage,
					Description: b.Description,
					External:    false,
					BookID:      &id,
				})
			}
		}
	}

	s.cacheSet(ctx, query, results)
	return results, nil
}

func (s *Service) fetchSource(ctx context.Context, src Source, query string) ([]Result, error) {
	searchURL := src.SearchURL + url.PathEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, src.Name)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", src.Name, err)
	}

	base, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("bad base url for %s: %w", src.Name, err)
	}

	var items []Result
	doc.Find(src.Selectors.Items).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find(src.Selectors.Title).First().Text())
		if title == "" {
			return true
		}
		author := strings.TrimSpace(sel.Find(src.Selectors.Author).First().Text())
		if author == "" {
			author = unknownAuthor
		}
		description := strings.TrimSpace(sel.Find(src.Selectors.Description).First().Text())
		if description == "" {
			description = noDescription
		}
		link, _ := sel.Find(src.Selectors.Link).First().Attr("href")
		cover, _ := sel.Find(src.Selectors.Cover).First().Attr("src")

		items = append(items, Result{
			Source:      src.Name,
			Title:       title,
			Author:      author,
			Link:        resolveRef(base, link),
			Cover:       resolveRef(base, cover),
			Description: description,
			External:    true,
		})
		return len(items) < maxItemsPerSource
	})
	return items, nil
}

// resolveRef makes relative links and cover paths absolute against the
// source's base URL.
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func (s *Service) cacheKey(query string) string {
	return "search:external:" + strings.ToLower(query)
}

func (s *Service) cacheGet(ctx context.Context, query string) ([]Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(query)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *Service) cacheSet(ctx context.Context, query string, results []Result) {
	if s.cache == nil || len(results) == 0 {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(query), raw, s.cacheTTL).Err(); err != nil {
		s.log.Debug("Search cache write failed", "error", err)
	}
}
