// Package collector runs one collection across the store roster, one browser
// session at a time.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/sales/extract"
	"github.com/bobmcallan/storetally/internal/sales/reconcile"
	"github.com/bobmcallan/storetally/internal/upload"
	"github.com/google/uuid"
)

// KV keys written after each run.
const (
	KeyLastRunID    = "last_run_id"
	KeyLastRunAt    = "last_run_at"
	KeyUploadPrefix = "last_upload:"
)

// Options tunes a collector.
type Options struct {
	Poll         extract.PollConfig
	CSVFallback  bool
	UploadFolder string
	Location     *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Collector turns portal sessions into persisted StoreResults.
type Collector struct {
	driver     interfaces.PortalDriver
	extractor  *extract.Extractor
	reconciler *reconcile.Reconciler
	results    interfaces.ResultStorage
	kv         interfaces.KeyValueStorage
	uploader   interfaces.Uploader
	opts       Options
	logger     *common.Logger
	now        func() time.Time
}

// New creates a collector. uploader may be nil.
func New(
	driver interfaces.PortalDriver,
	extractor *extract.Extractor,
	reconciler *reconcile.Reconciler,
	storage interfaces.StorageManager,
	uploader interfaces.Uploader,
	opts Options,
	logger *common.Logger,
) *Collector {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		driver:     driver,
		extractor:  extractor,
		reconciler: reconciler,
		results:    storage.ResultStorage(),
		kv:         storage.KeyValueStorage(),
		uploader:   uploader,
		opts:       opts,
		logger:     logger,
		now:        opts.Now,
	}
}

// Run is the outcome of one collection.
type Run struct {
	ID      string
	Type    models.CollectionType
	Date    string
	Results []models.StoreResult
	// UploadErr joins upload failures; results are persisted regardless.
	UploadErr error
}

// Collect visits every store in order. A store that cannot be read is recorded
// as failed and the run continues. The error reports persistence failures or
// cancellation.
func (c *Collector) Collect(ctx context.Context, stores []models.StoreCredentials, typ models.CollectionType) (Run, error) {
	started := c.now()
	run := Run{
		ID:   uuid.New().String(),
		Type: typ,
		Date: models.CivilDate(started, c.opts.Location),
	}
	log := c.logger.WithCorrelationId(run.ID)

	log.Info().
		Str("type", string(typ)).
		Str("date", run.Date).
		Int("stores", len(stores)).
		Msg("collection started")

	var saveErrs, uploadErrs []error
	for _, store := range stores {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		result, csvText := c.collectStore(ctx, log, store, typ, started.In(c.opts.Location))

		if err := c.results.SaveResult(ctx, result); err != nil {
			log.Error().Str("store", store.Name).Err(err).Msg("failed to save result")
			saveErrs = append(saveErrs, fmt.Errorf("%s: %w", store.Name, err))
		}
		run.Results = append(run.Results, result)

		if csvText != "" && c.uploader != nil {
			if err := c.upload(ctx, log, run.Date, store.Name, typ, csvText); err != nil {
				uploadErrs = append(uploadErrs, err)
			}
		}
	}

	run.UploadErr = errors.Join(uploadErrs...)

	c.record(ctx, log, KeyLastRunID, run.ID)
	c.record(ctx, log, KeyLastRunAt, c.now().UTC().Format(time.RFC3339))

	log.Info().
		Int("stores", len(run.Results)).
		Int("failed", countFailed(run.Results)).
		Dur("elapsed", c.now().Sub(started)).
		Msg("collection finished")

	return run, errors.Join(saveErrs...)
}

// collectStore reads one store: the summary page first, then the CSV export.
// It returns the CSV text when one was downloaded.
func (c *Collector) collectStore(ctx context.Context, log *common.Logger, store models.StoreCredentials, typ models.CollectionType, at time.Time) (models.StoreResult, string) {
	sess, err := c.driver.Open(ctx, store, at)
	if err != nil {
		log.Warn().Str("store", store.Name).Err(err).Msg("portal session failed")
		return models.FailedStoreResult(store.Name, err.Error(), typ, at), ""
	}
	defer sess.Close()

	page, pollErr := c.extractor.Poll(ctx, sess.SummaryRows, c.opts.Poll)
	if pollErr != nil {
		log.Warn().Str("store", store.Name).Err(pollErr).Msg("summary rows unavailable")
	}

	if page.OK() {
		log.Info().
			Str("store", store.Name).
			Str("amount", models.FormatAmount(page.Amount)).
			Str("status", page.Status.String()).
			Msg("net sales read from page")

		csvText := ""
		if c.uploader != nil {
			if text, err := sess.DownloadCSV(ctx); err != nil {
				log.Warn().Str("store", store.Name).Err(err).Msg("csv download for upload failed")
			} else {
				csvText = text
			}
		}
		return models.NewStoreResult(store.Name, page.Amount, models.SourcePage, typ, at), csvText
	}

	reason := fmt.Sprintf("summary: %s", page.Status)
	if pollErr != nil {
		reason = fmt.Sprintf("summary: %v", pollErr)
	}
	if !c.opts.CSVFallback {
		return models.FailedStoreResult(store.Name, reason, typ, at), ""
	}

	csvText, err := sess.DownloadCSV(ctx)
	if err != nil {
		log.Warn().Str("store", store.Name).Err(err).Msg("csv download failed")
		return models.FailedStoreResult(store.Name, fmt.Sprintf("%s; csv: %v", reason, err), typ, at), ""
	}

	rec, err := c.reconciler.NetSales(csvText)
	if err != nil {
		log.Warn().Str("store", store.Name).Err(err).Msg("csv reconcile failed")
		return models.FailedStoreResult(store.Name, fmt.Sprintf("%s; csv: %v", reason, err), typ, at), csvText
	}

	log.Info().
		Str("store", store.Name).
		Str("amount", models.FormatAmount(rec.Total)).
		Str("mode", string(rec.Mode)).
		Int("rows_used", rec.RowsUsed).
		Int("rows_skipped", rec.RowsSkipped).
		Msg("net sales reconciled from csv")

	return models.NewStoreResult(store.Name, rec.Total, models.SourceCSV, typ, at), csvText
}

func (c *Collector) upload(ctx context.Context, log *common.Logger, date, store string, typ models.CollectionType, csvText string) error {
	key := upload.ObjectKey(c.opts.UploadFolder, date, store, typ)
	loc, err := c.uploader.Upload(ctx, key, []byte(csvText))
	if err != nil {
		log.Error().Str("store", store).Str("uploader", c.uploader.Name()).Err(err).Msg("upload failed")
		return fmt.Errorf("upload %s: %w", store, err)
	}
	log.Info().Str("store", store).Str("location", loc).Msg("csv uploaded")
	c.record(ctx, log, KeyUploadPrefix+store, loc)
	return nil
}

// record writes run bookkeeping. A failed write is logged, not returned: the
// results themselves are already saved.
func (c *Collector) record(ctx context.Context, log *common.Logger, key, value string) {
	if err := c.kv.Set(ctx, key, value); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("failed to record run bookkeeping")
	}
}

func countFailed(results []models.StoreResult) int {
	n := 0
	for _, r := range results {
		if r.IsFailed() {
			n++
		}
	}
	return n
}
