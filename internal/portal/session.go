package portal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/sales/extract"
	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

// Session is one logged-in browser for one store.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	opts   Options
	store  string
	logger *common.Logger
}

func (s *Session) url(path string) string {
	return s.opts.BaseURL + path
}

func (s *Session) login(store models.StoreCredentials) error {
	sel := s.opts.Selectors
	actions := []chromedp.Action{
		chromedp.Navigate(s.url(s.opts.LoginPath)),
		chromedp.WaitVisible(sel.Username, chromedp.ByQuery),
		chromedp.SendKeys(sel.Username, store.Username, chromedp.ByQuery),
		chromedp.SendKeys(sel.Password, store.Password, chromedp.ByQuery),
		chromedp.Click(sel.Submit, chromedp.ByQuery),
	}
	if sel.LoggedIn != "" {
		actions = append(actions, chromedp.WaitVisible(sel.LoggedIn, chromedp.ByQuery))
	}
	return chromedp.Run(s.ctx, actions...)
}

func (s *Session) generateReport(day time.Time) error {
	sel := s.opts.Selectors
	if err := chromedp.Run(s.ctx,
		chromedp.Navigate(s.url(s.opts.ReportPath)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return err
	}

	if sel.DateInput != "" {
		// Typed keys are unreliable on date inputs.
		js := fmt.Sprintf(`(() => {
			const el = document.querySelector('%s');
			if (!el) return false;
			el.value = '%s';
			el.dispatchEvent(new Event('input', {bubbles: true}));
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		})()`, escJS(sel.DateInput), day.Format(models.DateLayout))
		var ok bool
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &ok)); err != nil {
			return fmt.Errorf("setting report date: %w", err)
		}
		if !ok {
			s.logger.Debug().Str("store", s.store).Str("selector", sel.DateInput).Msg("no date input, using portal default")
		}
	}

	return chromedp.Run(s.ctx,
		chromedp.WaitVisible(ByText(sel.GenerateText), chromedp.BySearch),
		chromedp.Click(ByText(sel.GenerateText), chromedp.BySearch),
	)
}

// opContext derives a context for one operation. Cancelling ctx aborts the
// operation; the browser stays open until Close.
func (s *Session) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	octx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return octx, func() {
		stop()
		cancel()
	}
}

// SummaryRows reads the text of every rendered summary row.
func (s *Session) SummaryRows(ctx context.Context) ([]models.SummaryRow, error) {
	octx, done := s.opContext(ctx)
	defer done()

	js := fmt.Sprintf(`Array.from(document.querySelectorAll('%s'))
		.map(el => (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim())
		.filter(t => t.length > 0)`, escJS(s.opts.Selectors.SummaryRows))

	var texts []string
	if err := chromedp.Run(octx, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, err
	}

	rows := models.RowsFromText(texts)
	for i := range rows {
		rows[i].Currencies = extract.Currencies(rows[i].Text)
	}
	return rows, nil
}

// DownloadCSV clicks the export control and waits for the browser download.
func (s *Session) DownloadCSV(ctx context.Context) (string, error) {
	octx, cancel := s.opContext(ctx)
	defer cancel()

	if err := os.MkdirAll(s.opts.DownloadDir, 0755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.opts.DownloadDir, "dl-*")
	if err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	defer os.RemoveAll(dir)
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	done := make(chan string, 1)
	lctx, lcancel := context.WithCancel(octx)
	defer lcancel()
	chromedp.ListenTarget(lctx, func(ev interface{}) {
		if e, ok := ev.(*browser.EventDownloadProgress); ok && e.State == browser.DownloadProgressStateCompleted {
			select {
			case done <- e.GUID:
			default:
			}
		}
	})

	export := ByText(s.opts.Selectors.ExportText)
	if err := chromedp.Run(octx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
		chromedp.WaitVisible(export, chromedp.BySearch),
		chromedp.Click(export, chromedp.BySearch),
	); err != nil {
		return "", fmt.Errorf("starting download: %w", err)
	}

	var guid string
	select {
	case guid = <-done:
	case <-octx.Done():
		return "", fmt.Errorf("waiting for download: %w", octx.Err())
	}

	data, err := os.ReadFile(filepath.Join(dir, guid))
	if err != nil {
		return "", fmt.Errorf("reading download: %w", err)
	}
	s.logger.Debug().Str("store", s.store).Int("bytes", len(data)).Msg("csv downloaded")
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	if s.stop != nil {
		s.stop()
	}
	s.cancel()
	return nil
}
