package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/storetally/internal/cache"
	"github.com/bobmcallan/storetally/internal/collector"
	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/handlers"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/mcp"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/notify"
	"github.com/bobmcallan/storetally/internal/portal"
	"github.com/bobmcallan/storetally/internal/report"
	"github.com/bobmcallan/storetally/internal/sales/extract"
	"github.com/bobmcallan/storetally/internal/sales/reconcile"
	"github.com/bobmcallan/storetally/internal/storage"
	"github.com/bobmcallan/storetally/internal/upload"
)

const rankingCacheTTL = 30 * time.Second

// App holds all application components and dependencies.
type App struct {
	Config   *config.Config
	Logger   *common.Logger
	Location *time.Location

	Storage    interfaces.StorageManager
	Reports    *report.Service
	Reconciler *reconcile.Reconciler
	Notifier   interfaces.Notifier
	Uploader   interfaces.Uploader

	// Driver is the portal driver used by collections. Tests replace it.
	Driver interfaces.PortalDriver

	// RankingCache holds rankings served by the status API; cleared after each collection.
	RankingCache *cache.Cache[report.Ranking]

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	ReportHandler  *handlers.ReportHandler
	MCPHandler     *mcp.Handler

	now func() time.Time
}

// New initializes the application with all dependencies.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	uploader, err := upload.NewUploader(ctx, logger, cfg.Upload)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to configure upload: %w", err)
	}

	a := &App{
		Config:       cfg,
		Logger:       logger,
		Location:     loc,
		Storage:      store,
		Reports:      report.NewService(store.ResultStorage(), store.StreakStorage(), cfg.StoreNames(), loc, logger),
		Reconciler:   ReconcilerFromConfig(cfg.Reconcile),
		Notifier:     notify.FromConfig(cfg.Notify, logger),
		Uploader:     uploader,
		Driver:       portal.NewDriver(portal.OptionsFromConfig(cfg.Portal), logger),
		RankingCache: cache.New[report.Ranking](rankingCacheTTL, 4),
		now:          time.Now,
	}

	a.initHandlers()

	logger.Info().
		Str("storage", cfg.Storage.Backend).
		Str("timezone", loc.String()).
		Int("stores", len(cfg.Stores)).
		Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Storage.KeyValueStorage())
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.Logger, a.Reports, a.RankingCache)
	a.MCPHandler = mcp.NewHandler(a.Reports, a.Storage.ResultStorage(), a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// ReconcilerFromConfig maps the [reconcile] section.
func ReconcilerFromConfig(cfg config.ReconcileConfig) *reconcile.Reconciler {
	return reconcile.New(reconcile.Options{
		Columns: reconcile.Columns{
			Net:       cfg.NetColumns,
			Fallback:  cfg.FallbackColumns,
			Ticket:    cfg.TicketColumns,
			Gross:     cfg.GrossColumn,
			NetOffset: cfg.NetOffset,
		},
		TicketMode: reconcile.TicketAmountMode(cfg.TicketAmountMode),
	})
}

// PollConfigFromConfig maps the readiness poll settings of [extract].
func PollConfigFromConfig(cfg config.ExtractConfig) extract.PollConfig {
	def := extract.DefaultPollConfig()
	return extract.PollConfig{
		Interval:    config.Duration(cfg.PollInterval, def.Interval),
		Timeout:     config.Duration(cfg.PollTimeout, def.Timeout),
		MaxAttempts: cfg.MaxAttempts,
	}
}

// Collector builds a collector over the app's driver, storage and uploader.
func (a *App) Collector() *collector.Collector {
	return collector.New(
		a.Driver,
		extract.New(a.Config.Extract.Labels),
		a.Reconciler,
		a.Storage,
		a.Uploader,
		collector.Options{
			Poll:         PollConfigFromConfig(a.Config.Extract),
			CSVFallback:  a.Config.Extract.CSVFallback,
			UploadFolder: a.Config.Upload.Folder,
			Location:     a.Location,
			Now:          a.now,
		},
		a.Logger,
	)
}

// Credentials returns the login of every configured store, or of the named ones.
func (a *App) Credentials(only ...string) ([]models.StoreCredentials, error) {
	if len(only) == 0 {
		out := make([]models.StoreCredentials, len(a.Config.Stores))
		for i, s := range a.Config.Stores {
			out[i] = s.Credentials()
		}
		return out, nil
	}
	out := make([]models.StoreCredentials, 0, len(only))
	for _, name := range only {
		s, ok := a.Config.Store(name)
		if !ok {
			return nil, fmt.Errorf("store %q is not configured", name)
		}
		out = append(out, s.Credentials())
	}
	return out, nil
}

// RunCollection collects every store, builds the daily report and sends it.
// Results and the streak are persisted before upload or notification errors
// are returned.
func (a *App) RunCollection(ctx context.Context, typ models.CollectionType, only ...string) (report.DailyReport, error) {
	stores, err := a.Credentials(only...)
	if err != nil {
		return report.DailyReport{}, err
	}

	run, err := a.Collector().Collect(ctx, stores, typ)
	a.RankingCache.Invalidate()
	if err != nil {
		return report.DailyReport{}, fmt.Errorf("collection %s: %w", run.ID, err)
	}

	daily, err := a.SendReport(ctx, typ)
	return daily, errors.Join(run.UploadErr, err)
}

// SendReport builds the report for today from stored results and notifies.
func (a *App) SendReport(ctx context.Context, typ models.CollectionType) (report.DailyReport, error) {
	now := a.now()
	daily, err := a.Reports.DailyReport(ctx, typ, now)
	if err != nil {
		return report.DailyReport{}, err
	}
	if err := a.Notifier.Send(ctx, daily.Message(now.In(a.Location))); err != nil {
		return daily, fmt.Errorf("notification: %w", err)
	}
	return daily, nil
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.Storage == nil {
		return nil
	}
	return a.Storage.Close()
}
