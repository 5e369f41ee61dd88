package browseragent

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/config"
)

// Driver controls one browser instance for the lifetime of a single run.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Scroll(ctx context.Context, deltaY int) error
	Screenshot(ctx context.Context) ([]byte, error)
	PageText(ctx context.Context) (string, error)
	Location(ctx context.Context) (url, title string, err error)
	Close() error
}

// pageTextLimit truncates extracted page text before it is handed to the
// planner, keeping prompt sizes bounded.
const pageTextLimit = 8000

// chromeDriver is the chromedp-backed Driver.
type chromeDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         config.BrowserConfig
	logger      *zap.Logger
	mu          sync.Mutex
}

// newChromeDriver starts a browser. The returned driver owns the browser
// process; Close tears it down.
func newChromeDriver(cfg config.BrowserConfig, logger *zap.Logger) (Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	d := &chromeDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "chrome_driver")),
	}

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d.logger.Debug("browser started",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_w", cfg.ViewportWidth),
		zap.Int("viewport_h", cfg.ViewportHeight),
	)

	return d, nil
}

func (d *chromeDriver) run(actions ...chromedp.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx := d.ctx
	if d.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.NavigationTimeout)
		defer cancel()
	}
	return chromedp.Run(ctx, actions...)
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("navigate", zap.String("url", url))
	return d.run(chromedp.Navigate(url))
}

func (d *chromeDriver) Click(ctx context.Context, selector string) error {
	d.logger.Debug("click", zap.String("selector", selector))
	return d.run(chromedp.Click(selector, chromedp.ByQuery))
}

func (d *chromeDriver) Type(ctx context.Context, selector, text string) error {
	d.logger.Debug("type", zap.String("selector", selector))
	return d.run(
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (d *chromeDriver) Scroll(ctx context.Context, deltaY int) error {
	return d.run(chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, 0, 0).
			WithDeltaY(float64(deltaY)).Do(ctx)
	}))
}

func (d *chromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(chromedp.FullScreenshot(&buf, 80)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

func (d *chromeDriver) PageText(ctx context.Context) (string, error) {
	var text string
	if err := d.run(chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to extract page text: %w", err)
	}
	if len(text) > pageTextLimit {
		text = text[:pageTextLimit] + "..."
	}
	return text, nil
}

func (d *chromeDriver) Location(ctx context.Context) (string, string, error) {
	var url, title string
	if err := d.run(chromedp.Location(&url), chromedp.Title(&title)); err != nil {
		return "", "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, title, nil
}

func (d *chromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Debug("closing browser")
	d.cancel()
	d.allocCancel()
	return nil
}
