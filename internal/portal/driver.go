// Package portal drives the retail sales portal through a headless browser.
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/chromedp/chromedp"
)

// Options configures the browser and the portal pages.
type Options struct {
	BaseURL     string
	LoginPath   string
	ReportPath  string
	Headless    bool
	ChromePath  string
	DownloadDir string
	Timeout     time.Duration
	Selectors   config.PortalSelectors
}

// OptionsFromConfig maps the [portal] section.
func OptionsFromConfig(cfg config.PortalConfig) Options {
	return Options{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		LoginPath:   cfg.LoginPath,
		ReportPath:  cfg.ReportPath,
		Headless:    cfg.Headless,
		ChromePath:  cfg.ChromePath,
		DownloadDir: cfg.DownloadDir,
		Timeout:     config.Duration(cfg.Timeout, 90*time.Second),
		Selectors:   cfg.Selectors,
	}
}

// Driver opens one browser per store session.
type Driver struct {
	opts   Options
	logger *common.Logger
}

// NewDriver creates a portal driver.
func NewDriver(opts Options, logger *common.Logger) *Driver {
	return &Driver{opts: opts, logger: logger}
}

var _ interfaces.PortalDriver = (*Driver)(nil)

func (d *Driver) newBrowserContext() (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if d.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(d.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)
	ctx, timeoutCancel := context.WithTimeout(ctx, d.opts.Timeout)

	cancel := func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
	}
	return ctx, cancel
}

// Open logs the store in, opens the sales report for day and generates it.
// The returned session owns the browser and must be closed.
func (d *Driver) Open(ctx context.Context, store models.StoreCredentials, day time.Time) (interfaces.PortalSession, error) {
	bctx, cancel := d.newBrowserContext()
	stop := context.AfterFunc(ctx, cancel)

	s := &Session{
		ctx:    bctx,
		cancel: cancel,
		stop:   stop,
		opts:   d.opts,
		store:  store.Name,
		logger: d.logger,
	}

	if err := s.login(store); err != nil {
		s.Close()
		return nil, fmt.Errorf("login %s: %w", store.Name, err)
	}
	d.logger.Debug().Str("store", store.Name).Msg("portal login complete")

	if err := s.generateReport(day); err != nil {
		s.Close()
		return nil, fmt.Errorf("generate report %s: %w", store.Name, err)
	}
	d.logger.Debug().Str("store", store.Name).Str("day", day.Format(models.DateLayout)).Msg("report generated")

	return s, nil
}

// xpathLiteral quotes s for use in an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// ByText returns an XPath matching a button, link or submit input by its visible text.
func ByText(text string) string {
	lit := xpathLiteral(strings.TrimSpace(text))
	return fmt.Sprintf(`//*[self::button or self::a or self::input][normalize-space(.)=%s or @value=%s]`, lit, lit)
}

// escJS escapes s for a single-quoted JavaScript string.
func escJS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
