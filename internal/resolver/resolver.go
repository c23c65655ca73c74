package resolver

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/sulafhq/sulaf-backend/internal/logger"
)

// ErrNoDownloadLink is returned when the rendered page exposes no anchor that
// looks like a file download. The acquisition runner treats it as terminal.
var ErrNoDownloadLink = errors.New("no download link found on page")

// Config holds the heuristics used to spot a download link. Keyword and
// extension lists are data so they can be tuned per deployment (or per
// source) without touching the matcher.
type Config struct {
	Timeout    time.Duration
	Keywords   []string // download-intent words matched against anchor text
	Extensions []string // file extensions matched against the href path
}

func DefaultConfig() Config {
	return Config{
		Timeout:    45 * time.Second,
		Keywords:   []string{"تحميل", "download"},
		Extensions: []string{".pdf", ".epub", ".txt"},
	}
}

type Anchor struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

const collectAnchorsJS = `Array.from(document.querySelectorAll('a')).map(a => ({text: a.textContent || '', href: a.href || ''}))`

type Service struct {
	log *logger.Logger
	cfg Config
}

func NewService(baseLog *logger.Logger, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultConfig().Keywords
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultConfig().Extensions
	}
	return &Service{log: baseLog.With("service", "LinkResolver"), cfg: cfg}
}

// Resolve renders pageURL in a throwaway headless browser context and returns
// the first anchor, in document order, that matches the download heuristics.
// The browser context is torn down on every exit path.
func (s *Service) Resolve(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, s.cfg.Timeout)
	defer cancelRun()

	var anchors []Anchor
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		// Give late XHR-injected anchors a moment to land.
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(collectAnchorsJS, &anchors),
	)
	if err != nil {
		return "", err
	}

	link, ok := PickDownloadLink(anchors, s.cfg)
	if !ok {
		s.log.Debug("No download candidate among anchors", "page", pageURL, "anchors", len(anchors))
		return "", ErrNoDownloadLink
	}
	s.log.Info("Resolved download link", "page", pageURL, "link", link)
	return link, nil
}

// PickDownloadLink applies the keyword/extension heuristics to anchors in
// document order and returns the first match.
func PickDownloadLink(anchors []Anchor, cfg Config) (string, bool) {
	for _, a := range anchors {
		href := strings.TrimSpace(a.Href)
		if href == "" {
			continue
		}
		if matchesKeyword(a.Text, cfg.Keywords) || matchesExtension(href, cfg.Extensions) {
			return href, true
		}
	}
	return "", false
}

func matchesKeyword(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func matchesExtension(href string, extensions []string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range extensions {
		if ext != "" && strings.HasSuffix(path, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
