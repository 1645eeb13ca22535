// Package config provides runtime configuration values for the storefront.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration knobs for the HTTP server, the external store, shopper
// sessions and the background refresh workers.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	Backend     string
	PostgresDSN string
	RedisAddr   string
	RedisPrefix string
	SeedDemo    bool

	CatalogPageSize        int
	CatalogRefreshInterval time.Duration
	ToastDuration          time.Duration
	ToastTimerPolicy       string
	WaitlistConfirmDelay   time.Duration
	SessionIdleTTL         time.Duration
	SessionSweepInterval   time.Duration
	UpsellFetchLimit       int
	UpsellMax              int

	DropWeekday time.Weekday
	DropHour    int
	DropTZ      string

	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int

	TracesExporter string
	OTLPEndpoint   string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// LoadDotenv reads KEY=VALUE files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("WORKER_MIN", 1)
	maxWorkers := atoienv("WORKER_MAX", 4)
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	initialWorkers := atoienv("WORKER_COUNT", minWorkers)
	weekday := atoienv("DROP_WEEKDAY", int(time.Sunday))
	if weekday < 0 || weekday > 6 {
		weekday = int(time.Sunday)
	}
	backend := strings.ToLower(getenv("BACKEND", "memory"))
	hour := atoienv("DROP_HOUR", 20)
	if hour < 0 || hour > 23 {
		hour = 20
	}
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),

		Backend:     backend,
		PostgresDSN: getenv("POSTGRES_DSN", ""),
		RedisAddr:   getenv("REDIS_ADDR", ""),
		RedisPrefix: getenv("REDIS_PREFIX", "drops"),
		SeedDemo:    boolenv("SEED_DEMO", backend == "memory"),

		CatalogPageSize:        atoienv("CATALOG_PAGE_SIZE", 12),
		CatalogRefreshInterval: durenvs("CATALOG_REFRESH_INTERVAL_S", 120),
		ToastDuration:          durenvms("TOAST_DURATION_MS", 2500),
		ToastTimerPolicy:       strings.ToLower(getenv("TOAST_TIMER_POLICY", "reset")),
		WaitlistConfirmDelay:   durenvms("WAITLIST_CONFIRM_MS", 2500),
		SessionIdleTTL:         durenvs("SESSION_IDLE_TTL_S", 1800),
		SessionSweepInterval:   durenvs("SESSION_SWEEP_INTERVAL_S", 60),
		UpsellFetchLimit:       atoienv("UPSELL_FETCH_LIMIT", 50),
		UpsellMax:              atoienv("UPSELL_MAX", 20),

		DropWeekday: time.Weekday(weekday),
		DropHour:    hour,
		DropTZ:      getenv("DROP_TZ", "Local"),

		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", 500),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", 16),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", 6),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", 1000),

		TracesExporter: strings.ToLower(getenv("OTEL_TRACES_EXPORTER", "none")),
		OTLPEndpoint:   getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Location resolves DropTZ, falling back to the local zone when it is unknown.
func (c Config) Location() *time.Location {
	if c.DropTZ == "" || c.DropTZ == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.DropTZ)
	if err != nil {
		return time.Local
	}
	return loc
}
