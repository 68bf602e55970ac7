package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/storetally/internal/models"
)

// PortalSession is one logged-in browser session against the sales portal.
type PortalSession interface {
	// SummaryRows returns the rendered summary lines of the current report.
	SummaryRows(ctx context.Context) ([]models.SummaryRow, error)
	// DownloadCSV exports the current report and returns the CSV text.
	DownloadCSV(ctx context.Context) (string, error)
	Close() error
}

// PortalDriver opens a session for one store with the report generated for day.
type PortalDriver interface {
	Open(ctx context.Context, store models.StoreCredentials, day time.Time) (PortalSession, error)
}

// Notifier delivers a daily report to one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg models.Message) error
}

// Uploader stores a collected CSV artifact.
type Uploader interface {
	Name() string
	// Upload writes body under key and returns a location for logging.
	Upload(ctx context.Context, key string, body []byte) (string, error)
}
