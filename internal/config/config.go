package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "STORETALLY_"

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Timezone    string               `toml:"timezone"`
	Server      ServerConfig         `toml:"server"`
	Portal      PortalConfig         `toml:"portal"`
	Stores      []StoreConfig        `toml:"stores"`
	Extract     ExtractConfig        `toml:"extract"`
	Reconcile   ReconcileConfig      `toml:"reconcile"`
	Storage     StorageConfig        `toml:"storage"`
	Notify      NotifyConfig         `toml:"notify"`
	Upload      UploadConfig         `toml:"upload"`
	Schedule    ScheduleConfig       `toml:"schedule"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP status server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `toml:"allowed_origins"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
}

// PortalConfig describes the sales portal and how to drive it.
type PortalConfig struct {
	BaseURL     string          `toml:"base_url"`
	LoginPath   string          `toml:"login_path"`
	ReportPath  string          `toml:"report_path"`
	Headless    bool            `toml:"headless"`
	ChromePath  string          `toml:"chrome_path"`
	DownloadDir string          `toml:"download_dir"`
	Timeout     string          `toml:"timeout"`
	Selectors   PortalSelectors `toml:"selectors"`
}

// PortalSelectors are the CSS selectors and button texts of the portal pages.
type PortalSelectors struct {
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Submit       string `toml:"submit"`
	LoggedIn     string `toml:"logged_in"`
	DateInput    string `toml:"date_input"`
	GenerateText string `toml:"generate_text"`
	SummaryRows  string `toml:"summary_rows"`
	ExportText   string `toml:"export_text"`
}

// StoreConfig is one store login.
type StoreConfig struct {
	Name     string `toml:"name"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Credentials converts the store entry for the portal driver.
func (s StoreConfig) Credentials() models.StoreCredentials {
	return models.StoreCredentials{Name: s.Name, Username: s.Username, Password: s.Password}
}

// ExtractConfig tunes summary extraction and the readiness poll.
type ExtractConfig struct {
	Labels       []string `toml:"labels"`
	PollInterval string   `toml:"poll_interval"`
	PollTimeout  string   `toml:"poll_timeout"`
	MaxAttempts  int      `toml:"max_attempts"`
	CSVFallback  bool     `toml:"csv_fallback"`
}

// ReconcileConfig is the CSV column vocabulary.
type ReconcileConfig struct {
	NetColumns       []string `toml:"net_columns"`
	FallbackColumns  []string `toml:"fallback_columns"`
	TicketColumns    []string `toml:"ticket_columns"`
	GrossColumn      string   `toml:"gross_column"`
	NetOffset        int      `toml:"net_offset"`
	TicketAmountMode string   `toml:"ticket_amount_mode"`
}

// StorageConfig selects and configures the result store.
type StorageConfig struct {
	Backend string       `toml:"backend"`
	Badger  BadgerConfig `toml:"badger"`
	File    FileConfig   `toml:"file"`
	SQLite  SQLiteConfig `toml:"sqlite"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
	// InMemory keeps the database in RAM; Path is ignored. Useful for dry runs.
	InMemory bool `toml:"in_memory"`
}

// FileConfig is the directory of the JSON file backend.
type FileConfig struct {
	Dir string `toml:"dir"`
}

// SQLiteConfig is the database file of the sqlite backend.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// NotifyConfig lists the notification channels. A channel with empty
// credentials is disabled.
type NotifyConfig struct {
	Slack    SlackConfig    `toml:"slack"`
	Telegram TelegramConfig `toml:"telegram"`
	Email    EmailConfig    `toml:"email"`
}

type SlackConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
	APIURL   string `toml:"api_url"`
}

type EmailConfig struct {
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
}

// UploadConfig selects where CSV artifacts are uploaded. Backend "" disables upload.
type UploadConfig struct {
	Backend string      `toml:"backend"`
	Folder  string      `toml:"folder"`
	S3      S3Config    `toml:"s3"`
	Drive   DriveConfig `toml:"drive"`
}

type S3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

type DriveConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	ParentFolderID  string `toml:"parent_folder_id"`
}

// ScheduleConfig holds the daily collection times (HH:MM, configured timezone) used by serve.
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Midday  string `toml:"midday"`
	Final   string `toml:"final"`
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadDotEnv loads a .env file into the process environment without replacing
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies STORETALLY_* environment variable overrides to config.
// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyEnvOverrides(config *Config) {
	if port := os.Getenv(EnvPrefix + "SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv(EnvPrefix + "SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if origins := os.Getenv(EnvPrefix + "ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = splitList(origins)
	}
	if tz := os.Getenv(EnvPrefix + "TIMEZONE"); tz != "" {
		config.Timezone = tz
	}
	if url := os.Getenv(EnvPrefix + "PORTAL_URL"); url != "" {
		config.Portal.BaseURL = url
	}
	if chrome := os.Getenv(EnvPrefix + "CHROME_PATH"); chrome != "" {
		config.Portal.ChromePath = chrome
	}
	if backend := os.Getenv(EnvPrefix + "STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if badgerPath := os.Getenv(EnvPrefix + "BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if hook := os.Getenv(EnvPrefix + "SLACK_WEBHOOK_URL"); hook != "" {
		config.Notify.Slack.WebhookURL = hook
	}
	if token := os.Getenv(EnvPrefix + "TELEGRAM_BOT_TOKEN"); token != "" {
		config.Notify.Telegram.BotToken = token
	}
	if chat := os.Getenv(EnvPrefix + "TELEGRAM_CHAT_ID"); chat != "" {
		config.Notify.Telegram.ChatID = chat
	}
	if pw := os.Getenv(EnvPrefix + "SMTP_PASSWORD"); pw != "" {
		config.Notify.Email.Password = pw
	}
	if key := os.Getenv(EnvPrefix + "S3_ACCESS_KEY_ID"); key != "" {
		config.Upload.S3.AccessKeyID = key
	}
	if secret := os.Getenv(EnvPrefix + "S3_SECRET_ACCESS_KEY"); secret != "" {
		config.Upload.S3.SecretAccessKey = secret
	}
	for i := range config.Stores {
		if pw := os.Getenv(StorePasswordEnv(config.Stores[i].Name)); pw != "" {
			config.Stores[i].Password = pw
		}
	}
}

// StorePasswordEnv returns the environment variable holding a store's password,
// e.g. "Main Street" -> STORETALLY_MAIN_STREET_PASSWORD.
func StorePasswordEnv(store string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(store)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return EnvPrefix + b.String() + "_PASSWORD"
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// SearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried before the working directory.
func SearchPaths() []string {
	candidates := []string{
		"storetally.toml",
		filepath.Join("config", "storetally.toml"),
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, "storetally.toml"),
		filepath.Join(binDir, "config", "storetally.toml"),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}

// Discover returns the first existing config file from SearchPaths, or "".
func Discover() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Location returns the configured timezone, UTC when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StoreNames returns the roster in configuration order.
func (c *Config) StoreNames() []string {
	names := make([]string, len(c.Stores))
	for i, s := range c.Stores {
		names[i] = s.Name
	}
	return names
}

// Store looks up a store by name (case-insensitive).
func (c *Config) Store(name string) (StoreConfig, bool) {
	for _, s := range c.Stores {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return StoreConfig{}, false
}

// Duration parses a duration string, returning def when empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate returns human-readable issues with mandatory or malformed settings.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	if _, err := c.Location(); err != nil {
		issues = append(issues, fmt.Sprintf("timezone: %v", err))
	}

	if c.Extract.MaxAttempts == 1 {
		issues = append(issues, "extract.max_attempts must be at least 2 to confirm a zero figure")
	}
	interval := Duration(c.Extract.PollInterval, 2*time.Second)
	if timeout := Duration(c.Extract.PollTimeout, 30*time.Second); timeout < interval {
		issues = append(issues, fmt.Sprintf("extract.poll_timeout (%s) must not be shorter than extract.poll_interval (%s)", timeout, interval))
	}

	seen := make(map[string]bool)
	for i, s := range c.Stores {
		if strings.TrimSpace(s.Name) == "" {
			issues = append(issues, fmt.Sprintf("stores[%d].name is required", i))
			continue
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			issues = append(issues, fmt.Sprintf("stores[%d]: duplicate store name %q", i, s.Name))
		}
		seen[key] = true
		if s.Username == "" {
			issues = append(issues, fmt.Sprintf("stores[%d] (%s): username is required", i, s.Name))
		}
	}

	switch c.Storage.Backend {
	case "badger", "file", "sqlite", "memory":
	default:
		issues = append(issues, fmt.Sprintf("storage.backend must be badger, file, sqlite or memory (got %q)", c.Storage.Backend))
	}

	switch c.Reconcile.TicketAmountMode {
	case "", "auto", "sum", "once":
	default:
		issues = append(issues, fmt.Sprintf("reconcile.ticket_amount_mode must be auto, sum or once (got %q)", c.Reconcile.TicketAmountMode))
	}

	switch c.Upload.Backend {
	case "":
	case "s3":
		if c.Upload.S3.Bucket == "" {
			issues = append(issues, "upload.s3.bucket is required when upload.backend is s3")
		}
	case "drive":
		if c.Upload.Drive.CredentialsFile == "" {
			issues = append(issues, "upload.drive.credentials_file is required when upload.backend is drive")
		}
	default:
		issues = append(issues, fmt.Sprintf("upload.backend must be s3, drive or empty (got %q)", c.Upload.Backend))
	}

	if c.Notify.Email.Host != "" && (c.Notify.Email.From == "" || len(c.Notify.Email.To) == 0) {
		issues = append(issues, "notify.email requires from and at least one to address")
	}

	if c.Schedule.Enabled {
		for name, at := range map[string]string{"schedule.midday": c.Schedule.Midday, "schedule.final": c.Schedule.Final} {
			if _, err := time.Parse("15:04", at); err != nil {
				issues = append(issues, fmt.Sprintf("%s must be HH:MM (got %q)", name, at))
			}
		}
	}

	return issues
}

// RequireStores reports the issue for commands that need the portal.
func (c *Config) RequireStores() []string {
	var issues []string
	if c.Portal.BaseURL == "" {
		issues = append(issues, "portal.base_url is required")
	}
	if len(c.Stores) == 0 {
		issues = append(issues, "at least one [[stores]] entry is required")
	}
	for _, s := range c.Stores {
		if s.Password == "" {
			issues = append(issues, fmt.Sprintf("store %s has no password (set password or %s)", s.Name, StorePasswordEnv(s.Name)))
		}
	}
	return issues
}
