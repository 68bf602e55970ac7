package config

import "github.com/bobmcallan/storetally/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Timezone:    "",
		Server: ServerConfig{
			Port:           4251,
			Host:           "localhost",
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
		},
		Portal: PortalConfig{
			LoginPath:   "/login",
			ReportPath:  "/reports/sales-summary",
			Headless:    true,
			DownloadDir: "./data/downloads",
			Timeout:     "90s",
			Selectors: PortalSelectors{
				Username:     `input[name="username"]`,
				Password:     `input[type="password"]`,
				Submit:       `button[type="submit"]`,
				LoggedIn:     `nav`,
				DateInput:    `input[name="date"]`,
				GenerateText: "Generate Report",
				SummaryRows:  `table tr, .summary-row`,
				ExportText:   "Export CSV",
			},
		},
		Extract: ExtractConfig{
			Labels:       []string{"Net Sales"},
			PollInterval: "2s",
			PollTimeout:  "30s",
			MaxAttempts:  15,
			CSVFallback:  true,
		},
		Reconcile: ReconcileConfig{
			NetColumns:       []string{"net sales", "net revenue"},
			FallbackColumns:  []string{"revenue", "total"},
			TicketColumns:    []string{"ticket id", "ticket", "ticket #", "ticket number", "transaction id", "order id"},
			GrossColumn:      "gross sales",
			NetOffset:        3,
			TicketAmountMode: "auto",
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger:  BadgerConfig{Path: "./data/storetally"},
			File:    FileConfig{Dir: "./data/results"},
			SQLite:  SQLiteConfig{Path: "./data/storetally.db"},
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
			Email:    EmailConfig{Port: 587},
		},
		Upload: UploadConfig{
			Folder: "storetally",
			S3:     S3Config{Region: "us-east-1"},
		},
		Schedule: ScheduleConfig{
			Midday: "12:30",
			Final:  "21:30",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "./logs/storetally.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
