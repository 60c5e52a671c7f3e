// Package config resolves the runtime configuration from command line flags
// and environment variables. Flags win over the environment; missing
// required values are reported together in one error instead of one at a
// time.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Environment variable names read when the matching flag is empty.
const (
	EnvDataSourcePath = "DATA_SOURCE_PATH"
	EnvAPIKey         = "CELONIS_API_KEY"
	EnvInstanceID     = "CELONIS_INSTANCE_ID"
	EnvPoolID         = "CELONIS_POOL_ID"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// Path is the data file or directory to push.
	Path string
	// APIKey authenticates against the platform API.
	APIKey string
	// InstanceID is either a bare instance name or a full base URL.
	InstanceID string
	// PoolID identifies the target data pool.
	PoolID string

	ChunkSize  int
	ChunkPause time.Duration
	FilePause  time.Duration

	JobName            string
	TransformationName string

	// MetricsBackend selects the metrics sink, "datadog" or "none".
	MetricsBackend string
	// MetricsTags is a comma separated key:value list for Datadog series.
	MetricsTags string

	// HistoryPath enables the local outcome log when non-empty.
	HistoryPath string

	LogLevel  string
	LogFormat string
}

// Flags carries the raw flag values before environment fallback.
type Flags struct {
	Path       string
	APIKey     string
	InstanceID string
	PoolID     string

	ChunkSize  int
	ChunkPause time.Duration
	FilePause  time.Duration

	JobName            string
	TransformationName string

	MetricsBackend string
	MetricsTags    string

	HistoryPath string

	LogLevel  string
	LogFormat string
}

// MissingError lists every required value that resolved to empty.
type MissingError struct {
	Fields []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Fields, ", ")
}

// Resolve merges flags over the environment. getenv is os.Getenv in
// production and a map lookup in tests.
//
// Errors: a *MissingError naming every absent required value, so a bare
// invocation reports the full list at once.
func Resolve(flags Flags, getenv func(string) string) (*Config, error) {
	pick := func(flag, env string) string {
		if flag != "" {
			return flag
		}
		return getenv(env)
	}

	cfg := &Config{
		Path:       pick(flags.Path, EnvDataSourcePath),
		APIKey:     pick(flags.APIKey, EnvAPIKey),
		InstanceID: pick(flags.InstanceID, EnvInstanceID),
		PoolID:     pick(flags.PoolID, EnvPoolID),

		ChunkSize:  flags.ChunkSize,
		ChunkPause: flags.ChunkPause,
		FilePause:  flags.FilePause,

		JobName:            flags.JobName,
		TransformationName: flags.TransformationName,

		MetricsBackend: flags.MetricsBackend,
		MetricsTags:    flags.MetricsTags,

		HistoryPath: flags.HistoryPath,

		LogLevel:  flags.LogLevel,
		LogFormat: flags.LogFormat,
	}

	var missing []string
	if cfg.Path == "" {
		missing = append(missing, "path")
	}
	if cfg.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if cfg.InstanceID == "" {
		missing = append(missing, "instance_id")
	}
	if cfg.PoolID == "" {
		missing = append(missing, "pool_id")
	}
	if len(missing) > 0 {
		return nil, &MissingError{Fields: missing}
	}

	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	switch cfg.MetricsBackend {
	case "", "none", "datadog":
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.MetricsBackend)
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	return cfg, nil
}

// BaseURL expands the instance id into the platform base URL. A value that
// already looks like a URL is used as-is; a bare instance name becomes
// https://<id>.celonis.cloud/.
func (c *Config) BaseURL() string {
	id := strings.TrimSpace(c.InstanceID)
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return fmt.Sprintf("https://%s.celonis.cloud/", id)
}
