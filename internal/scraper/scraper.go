// Package scraper renders a page with headless Chrome and extracts readable
// text. Browser cookies from the extension can be injected so authenticated
// profile pages render their real content instead of a sign-in wall.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/composer/config"
)

// Cookie is one browser cookie forwarded by the extension.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Result is the extracted page. SignInWall is set when the rendered content
// looks like an auth gate rather than the real page.
type Result struct {
	URL        string
	Title      string
	Content    string
	SignInWall bool
	RenderMS   int
}

type Scraper struct {
	Timeout  time.Duration
	MaxChars int
}

func New(cfg config.ScraperConfig) *Scraper {
	return &Scraper{Timeout: cfg.Timeout, MaxChars: cfg.MaxChars}
}

// Phrases that, on a very short page, indicate an auth gate.
var signInIndicators = []string{
	"sign in",
	"log in",
	"join now",
	"create account",
	"authentication required",
}

const signInWallThreshold = 500

// DetectSignInWall reports whether extracted content looks like a blocked
// auth-gated page: an indicator phrase plus very little content.
func DetectSignInWall(content string) bool {
	if len(content) >= signInWallThreshold {
		return false
	}
	lower := strings.ToLower(content)
	for _, indicator := range signInIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ErrorPlaceholder renders the markdown stored in place of content when a
// scrape fails, so downstream consumers always have something to show.
func ErrorPlaceholder(rawURL string, err error) string {
	return fmt.Sprintf("# Scraping Error\n\nFailed to scrape %s\n\nError: %v", rawURL, err)
}

// Fetch renders the URL and returns readable text. The error placeholder is
// returned as content alongside the error so callers can store it.
func (s *Scraper) Fetch(ctx context.Context, rawURL string, cookies []Cookie) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, errors.New("invalid url")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t0 := time.Now()

	html, err := s.fetchHTML(ctx, rawURL, cookies)
	if err != nil {
		return Result{
			URL:      rawURL,
			Content:  ErrorPlaceholder(rawURL, err),
			RenderMS: int(time.Since(t0) / time.Millisecond),
		}, fmt.Errorf("render: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(rawURL))
	if err != nil {
		return Result{
			URL:      rawURL,
			Content:  ErrorPlaceholder(rawURL, err),
			RenderMS: int(time.Since(t0) / time.Millisecond),
		}, fmt.Errorf("extract: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if s.MaxChars > 0 && len(text) > s.MaxChars {
		text = text[:s.MaxChars]
	}

	return Result{
		URL:        rawURL,
		Title:      strings.TrimSpace(article.Title),
		Content:    text,
		SignInWall: DetectSignInWall(text),
		RenderMS:   int(time.Since(t0) / time.Millisecond),
	}, nil
}

func (s *Scraper) fetchHTML(ctx context.Context, rawURL string, cookies []Cookie) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	actions := []chromedp.Action{setCookies(rawURL, cookies)}
	actions = append(actions,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(bctx, actions...); err != nil {
		return "", err
	}
	return html, nil
}

// setCookies installs the forwarded browser cookies before navigation.
// Cookies without a domain default to the target URL's host.
func setCookies(rawURL string, cookies []Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(cookies) == 0 {
			return nil
		}
		host := mustParseURL(rawURL).Hostname()
		for _, c := range cookies {
			domain := c.Domain
			if domain == "" {
				domain = host
			}
			path := c.Path
			if path == "" {
				path = "/"
			}
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(domain).
				WithPath(path).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
