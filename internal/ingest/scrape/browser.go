package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	// UserAgent for page loads
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MinRequestInterval spaces out page loads
	MinRequestInterval = 2 * time.Second

	// DefaultTimeout bounds a single page load
	DefaultTimeout = 30 * time.Second
)

// Fetcher returns the rendered HTML of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// BrowserConfig configures the headless browser
type BrowserConfig struct {
	Timeout     time.Duration
	MinInterval time.Duration
	UserAgent   string
}

// Browser renders sportsbook pages in headless Chrome. Page loads are
// serialized and spaced at least MinInterval apart.
type Browser struct {
	mu          sync.Mutex
	lastRequest time.Time
	interval    time.Duration
	timeout     time.Duration

	allocCtx context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
}

// NewBrowser starts a chrome allocator. Chrome itself is launched lazily on
// the first Fetch.
func NewBrowser(cfg BrowserConfig, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		interval: cfg.MinInterval,
		timeout:  cfg.Timeout,
		allocCtx: allocCtx,
		cancel:   cancel,
		logger:   logger.With(zap.String("component", "browser")),
	}
}

// Close releases the allocator and any running chrome process
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Fetch loads url and returns the outer HTML of the document
func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lastRequest.IsZero() {
		if wait := b.interval - time.Since(b.lastRequest); wait > 0 {
			b.logger.Debug("rate limiting", zap.Duration("wait", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	html, err := b.fetch(ctx, url)
	b.lastRequest = time.Now()
	return html, err
}

func (b *Browser) fetch(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, b.timeout)
	defer cancelTimeout()

	// the chrome context is rooted at the allocator, so tie it to the caller too
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	start := time.Now()
	var htmlContent string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(1*time.Second), // let client-side rendering settle
		chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp %s: %w", url, err)
	}
	if htmlContent == "" {
		return "", fmt.Errorf("empty HTML content returned from %s", url)
	}

	b.logger.Debug("page loaded",
		zap.String("url", url),
		zap.Int("bytes", len(htmlContent)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return htmlContent, nil
}
