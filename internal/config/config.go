// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML/JSON file -> environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"
)

// EnvPrefix is the prefix of environment overrides, e.g. LOGBOT_LOGLEVEL.
const EnvPrefix = "LOGBOT_"

// DefaultReconnectTimeout is the collector reopen delay in milliseconds.
const DefaultReconnectTimeout = 2000

var (
	// ErrNoIngestors is returned when no ingestor is enabled.
	ErrNoIngestors = errors.New("no ingestors enabled")
	// ErrNoEmitters is returned when no emitter is enabled.
	ErrNoEmitters = errors.New("no emitters enabled")
)

// Config is the root configuration structure for logbot.
type Config struct {
	LogLevel  string          `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	Server    string          `koanf:"server"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Shipper   ShipperConfig   `koanf:"shipper"`
	Ingestors IngestorConfig  `koanf:"ingestors"`
	Processor ProcessorConfig `koanf:"processor"`
	Emitters  EmitterConfig   `koanf:"emitters"`
}

// PipelineConfig controls the pipeline behavior.
type PipelineConfig struct {
	BufferSize       int           `koanf:"buffersize" yaml:"buffer_size" json:"buffer_size"`
	ShutdownTimeout  time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	DropOnFullBuffer bool          `koanf:"droponbufferfull" yaml:"drop_on_full_buffer" json:"drop_on_full_buffer"`
	LaunchMessage    string        `koanf:"launchmessage" yaml:"launch_message" json:"launch_message"`
}

// ShipperConfig configures delivery to the remote syslog collectors.
type ShipperConfig struct {
	Collectors []CollectorConfig `koanf:"collectors"`
	// ReconnectTimeout is the flat reopen delay in milliseconds; <= 0 means the default.
	ReconnectTimeout int           `koanf:"reconnecttimeout" yaml:"reconnect_timeout" json:"reconnect_timeout"`
	DialTimeout      time.Duration `koanf:"dialtimeout" yaml:"dial_timeout" json:"dial_timeout"`
	// MaxPending caps the pending queue; 0 keeps it unbounded.
	MaxPending  int    `koanf:"maxpending" yaml:"max_pending" json:"max_pending"`
	GatePolicy  string `koanf:"gatepolicy" yaml:"gate_policy" json:"gate_policy"` // "endpoint" or "global"
	WriteBuffer int    `koanf:"writebuffer" yaml:"write_buffer" json:"write_buffer"`
}

// CollectorConfig is one remote line-oriented TCP collector.
type CollectorConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// ReconnectDelay returns the reopen delay, applying the default.
func (c ShipperConfig) ReconnectDelay() time.Duration {
	ms := c.ReconnectTimeout
	if ms <= 0 {
		ms = DefaultReconnectTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

// IngestorConfig holds configuration for all ingestors.
type IngestorConfig struct {
	Stdin  StdinIngestorConfig  `koanf:"stdin"`
	File   FileIngestorConfig   `koanf:"file"`
	Listen ListenIngestorConfig `koanf:"listen"`
}

// StdinIngestorConfig configures the stdin ingestor.
type StdinIngestorConfig struct {
	Enabled bool `koanf:"enabled"`
}

// FileIngestorConfig configures the file tailing ingestor.
type FileIngestorConfig struct {
	Enabled bool     `koanf:"enabled"`
	Paths   []string `koanf:"paths"`
	// FromStart reads existing content instead of only new lines.
	FromStart bool `koanf:"fromstart" yaml:"from_start" json:"from_start"`
	Poll      bool `koanf:"poll"`
}

// ListenIngestorConfig configures the network line listener, e.g. for a relay or another
// logbot's shipper.
type ListenIngestorConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Protocol string `koanf:"protocol"` // "tcp" or "udp"
	Address  string `koanf:"address"`
}

// ProcessorConfig holds the processor chain configuration.
type ProcessorConfig struct {
	Records  RecordParserConfig `koanf:"records"`
	IRC      IRCParserConfig    `koanf:"irc"`
	Enricher EnricherConfig     `koanf:"enricher"`
}

// RecordParserConfig configures turning structured input lines into records.
type RecordParserConfig struct {
	Enabled        bool     `koanf:"enabled"`
	JSONAutoDetect bool     `koanf:"jsonautodetect" yaml:"json_auto_detect" json:"json_auto_detect"`
	Patterns       []string `koanf:"patterns"` // regexes with named groups
}

// IRCParserConfig configures parsing of raw IRC protocol lines into event records.
type IRCParserConfig struct {
	Enabled bool `koanf:"enabled"`
	// KeepUnknown ships lines that are not IRC events as plain text instead of dropping them.
	KeepUnknown bool `koanf:"keepunknown" yaml:"keep_unknown" json:"keep_unknown"`
}

// EnricherConfig configures the enrichment processor.
type EnricherConfig struct {
	Enabled      bool              `koanf:"enabled"`
	AddHostname  bool              `koanf:"addhostname" yaml:"add_hostname" json:"add_hostname"`
	AddSession   bool              `koanf:"addsession" yaml:"add_session" json:"add_session"`
	StaticLabels map[string]string `koanf:"staticlabels" yaml:"static_labels" json:"static_labels"`
}

// EmitterConfig holds configuration for all emitters.
type EmitterConfig struct {
	Syslog        SyslogEmitterConfig        `koanf:"syslog"`
	Console       ConsoleEmitterConfig       `koanf:"console"`
	Archive       ArchiveEmitterConfig       `koanf:"archive"`
	Elasticsearch ElasticsearchEmitterConfig `koanf:"elasticsearch"`
}

// SyslogEmitterConfig enables shipping through the collector shipper.
type SyslogEmitterConfig struct {
	Enabled bool `koanf:"enabled"`
}

// ConsoleEmitterConfig configures the operator console echo.
type ConsoleEmitterConfig struct {
	Enabled bool   `koanf:"enabled"`
	Format  string `koanf:"format"` // "text" or "json"
}

// ArchiveEmitterConfig configures the local rotating archive.
type ArchiveEmitterConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ElasticsearchEmitterConfig configures the Elasticsearch emitter.
type ElasticsearchEmitterConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Addresses     []string      `koanf:"addresses"`
	Index         string        `koanf:"index"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	FlushInterval time.Duration `koanf:"flushinterval" yaml:"flush_interval" json:"flush_interval"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		Server:   "irc.libera.chat",
		Pipeline: PipelineConfig{
			BufferSize:       1000,
			ShutdownTimeout:  30 * time.Second,
			DropOnFullBuffer: false,
			LaunchMessage:    "logbot launching",
		},
		Shipper: ShipperConfig{
			ReconnectTimeout: DefaultReconnectTimeout,
			DialTimeout:      10 * time.Second,
			MaxPending:       0,
			GatePolicy:       "endpoint",
			WriteBuffer:      1024,
		},
		Ingestors: IngestorConfig{
			Stdin: StdinIngestorConfig{Enabled: false},
			File:  FileIngestorConfig{Enabled: false},
			Listen: ListenIngestorConfig{
				Enabled:  false,
				Protocol: "tcp",
				Address:  "127.0.0.1:6514",
			},
		},
		Processor: ProcessorConfig{
			Records: RecordParserConfig{
				Enabled:        true,
				JSONAutoDetect: true,
			},
			IRC: IRCParserConfig{
				Enabled:     true,
				KeepUnknown: false,
			},
			Enricher: EnricherConfig{
				Enabled:     true,
				AddHostname: false,
				AddSession:  true,
			},
		},
		Emitters: EmitterConfig{
			Syslog: SyslogEmitterConfig{Enabled: true},
			Console: ConsoleEmitterConfig{
				Enabled: true,
				Format:  "text",
			},
			Archive: ArchiveEmitterConfig{
				Enabled:    false,
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 7,
				Compress:   true,
			},
			Elasticsearch: ElasticsearchEmitterConfig{
				Enabled:       false,
				Index:         "irc",
				FlushInterval: 5 * time.Second,
			},
		},
	}
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	// Add file source if path provided or if default config exists
	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./config.yaml", "/etc/logbot/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that cannot be expressed through defaults.
func (c *Config) Validate() error {
	for i, col := range c.Shipper.Collectors {
		if col.Host == "" {
			return fmt.Errorf("shipper.collectors[%d]: empty host", i)
		}
		if col.Port <= 0 || col.Port > 65535 {
			return fmt.Errorf("shipper.collectors[%d]: invalid port %d", i, col.Port)
		}
	}
	switch c.Shipper.GatePolicy {
	case "", "endpoint", "global":
	default:
		return fmt.Errorf("shipper.gatepolicy: unknown policy %q", c.Shipper.GatePolicy)
	}
	if c.Shipper.MaxPending < 0 {
		return fmt.Errorf("shipper.maxpending: must not be negative, got %d", c.Shipper.MaxPending)
	}
	if c.Ingestors.File.Enabled && len(c.Ingestors.File.Paths) == 0 {
		return fmt.Errorf("ingestors.file.paths: required when the file ingestor is enabled")
	}
	if c.Ingestors.Listen.Enabled {
		switch c.Ingestors.Listen.Protocol {
		case "tcp", "udp":
		default:
			return fmt.Errorf("ingestors.listen.protocol: unsupported protocol %q", c.Ingestors.Listen.Protocol)
		}
	}
	if c.Emitters.Archive.Enabled && c.Emitters.Archive.Path == "" {
		return fmt.Errorf("emitters.archive.path: required when the archive is enabled")
	}
	return nil
}
