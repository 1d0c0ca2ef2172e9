package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	SelectFirstMatch = "first"
	SelectBestMatch  = "best"

	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	LogLevel  string
	LogFormat string

	SampleSize             int
	TypeDetectThreshold    float64
	TemplateMatchThreshold float64
	TemplateSelection      string

	TemplateStore    string
	TemplateStoreKey string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	TemplateCatalogURL       string
	TemplateCatalogToken     string
	TemplateCatalogRPS       int
	TemplateCatalogTimeoutMs int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ReportListenerProvider     string
	ReportListenerLabel        string
	ReportListenerIntervalSec  int
	ReportListenerFetchMax     int
	ReportListenerProcessBatch int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SampleSize:             getEnvInt("SAMPLE_SIZE", 100),
		TypeDetectThreshold:    getEnvFloat("TYPE_DETECT_THRESHOLD", 0.7),
		TemplateMatchThreshold: getEnvFloat("TEMPLATE_MATCH_THRESHOLD", 0.6),
		TemplateSelection:      strings.ToLower(getEnv("TEMPLATE_SELECTION", SelectFirstMatch)),

		TemplateStore:    strings.ToLower(getEnv("TEMPLATE_STORE", StoreSQLite)),
		TemplateStoreKey: getEnv("TEMPLATE_STORE_KEY", "csv_mapping_templates"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),

		TemplateCatalogURL:       getEnv("TEMPLATE_CATALOG_URL", ""),
		TemplateCatalogToken:     getEnv("TEMPLATE_CATALOG_TOKEN", ""),
		TemplateCatalogRPS:       getEnvInt("TEMPLATE_CATALOG_RPS", 5),
		TemplateCatalogTimeoutMs: getEnvInt("TEMPLATE_CATALOG_TIMEOUT_MS", 30000),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ReportListenerProvider:     getEnv("REPORT_LISTENER_PROVIDER", "imap"),
		ReportListenerLabel:        getEnv("REPORT_LISTENER_LABEL", "INBOX"),
		ReportListenerIntervalSec:  getEnvInt("REPORT_LISTENER_INTERVAL_SEC", 300),
		ReportListenerFetchMax:     getEnvInt("REPORT_LISTENER_FETCH_MAX", 20),
		ReportListenerProcessBatch: getEnvInt("REPORT_LISTENER_PROCESS_BATCH", 20),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) validate() error {
	switch c.TemplateSelection {
	case SelectFirstMatch, SelectBestMatch:
	default:
		return fmt.Errorf("TEMPLATE_SELECTION must be %q or %q, got %q", SelectFirstMatch, SelectBestMatch, c.TemplateSelection)
	}
	switch c.TemplateStore {
	case StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("TEMPLATE_STORE must be %q or %q, got %q", StoreSQLite, StoreRedis, c.TemplateStore)
	}
	if c.TypeDetectThreshold <= 0 || c.TypeDetectThreshold >= 1 {
		return fmt.Errorf("TYPE_DETECT_THRESHOLD must be in (0,1), got %v", c.TypeDetectThreshold)
	}
	if c.TemplateMatchThreshold <= 0 || c.TemplateMatchThreshold >= 1 {
		return fmt.Errorf("TEMPLATE_MATCH_THRESHOLD must be in (0,1), got %v", c.TemplateMatchThreshold)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
