package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Period     PeriodConfig     `yaml:"period" mapstructure:"period"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Targets    TargetsConfig    `yaml:"targets" mapstructure:"targets"`
	Reference  ReferenceConfig  `yaml:"reference" mapstructure:"reference"`
	Parity     ParityConfig     `yaml:"parity" mapstructure:"parity"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Dispatch   DispatchConfig   `yaml:"dispatch" mapstructure:"dispatch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourceConfig locates and shapes the input spreadsheet.
type SourceConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`           // explicit file; wins over Dir
	Dir      string `yaml:"dir" mapstructure:"dir"`             // newest *.xlsx here when Path is empty
	SkipRows int    `yaml:"skip_rows" mapstructure:"skip_rows"` // banner + header rows
	Sheet    string `yaml:"sheet" mapstructure:"sheet"`
}

// PeriodConfig fixes the reporting period geometry.
type PeriodConfig struct {
	LengthDays      int `yaml:"length_days" mapstructure:"length_days"`
	NormalEndDay    int `yaml:"normal_end_day" mapstructure:"normal_end_day"`
	ElapsedOverride int `yaml:"elapsed_override" mapstructure:"elapsed_override"` // 0 = day of month
}

// ClassifierConfig holds the rollup detection keywords.
type ClassifierConfig struct {
	LabelKeywords []string `yaml:"label_keywords" mapstructure:"label_keywords"`
	RegionKeyword string   `yaml:"region_keyword" mapstructure:"region_keyword"`
	RegionAllow   []string `yaml:"region_allow" mapstructure:"region_allow"`
	RulesFile     string   `yaml:"rules_file" mapstructure:"rules_file"`
}

// TargetsConfig controls target resolution.
type TargetsConfig struct {
	PreviousPeriodFallback bool     `yaml:"previous_period_fallback" mapstructure:"previous_period_fallback"`
	FallbackFactor         float64  `yaml:"fallback_factor" mapstructure:"fallback_factor"`
	RollupMarkers          []string `yaml:"rollup_markers" mapstructure:"rollup_markers"`
}

// ReferenceConfig points at the offline reference artifacts.
type ReferenceConfig struct {
	SurgeDir   string `yaml:"surge_dir" mapstructure:"surge_dir"`
	MarketPath string `yaml:"market_path" mapstructure:"market_path"`
}

// ParityConfig configures the parity gate.
type ParityConfig struct {
	Tolerance    float64 `yaml:"tolerance" mapstructure:"tolerance"`
	AuditLogPath string  `yaml:"audit_log_path" mapstructure:"audit_log_path"`
}

// ReportConfig configures the executive summary.
type ReportConfig struct {
	Company           string   `yaml:"company" mapstructure:"company"`
	Teams             []string `yaml:"teams" mapstructure:"teams"`
	Underperformers   int      `yaml:"underperformers" mapstructure:"underperformers"`
	OnTrackPct        float64  `yaml:"on_track_pct" mapstructure:"on_track_pct"`
	SlightlyBehindPct float64  `yaml:"slightly_behind_pct" mapstructure:"slightly_behind_pct"`
}

// OutputConfig selects where and how reports are written.
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Snapshot    bool   `yaml:"snapshot" mapstructure:"snapshot"`
}

// DispatchConfig configures report delivery.
type DispatchConfig struct {
	WebhookURL         string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Recipients         string `yaml:"recipients" mapstructure:"recipients"` // comma separated
	MaxAttempts        int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs   int    `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	RecipientPauseSecs int    `yaml:"recipient_pause_secs" mapstructure:"recipient_pause_secs"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MonitoringConfig configures failure alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	LookbackRuns         int     `yaml:"lookback_runs" mapstructure:"lookback_runs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
}

// ScheduleConfig configures the daily scheduler.
type ScheduleConfig struct {
	Time string `yaml:"time" mapstructure:"time"` // HH:MM local time
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VARIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.path", "")
	v.SetDefault("source.dir", "downloads")
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.skip_rows", 3)
	v.SetDefault("period.length_days", 28)
	v.SetDefault("period.normal_end_day", 23)
	v.SetDefault("period.elapsed_override", 0)
	v.SetDefault("classifier.label_keywords", []string{"ALL", "SUMMARY", "TOTAL"})
	v.SetDefault("classifier.region_keyword", "ALL")
	v.SetDefault("classifier.region_allow", []string{})
	v.SetDefault("classifier.rules_file", "")
	v.SetDefault("targets.previous_period_fallback", false)
	v.SetDefault("targets.fallback_factor", 1.10)
	v.SetDefault("targets.rollup_markers", []string{"SUMMARY", "TOTAL"})
	v.SetDefault("reference.surge_dir", ".")
	v.SetDefault("reference.market_path", "market_baselines.json")
	v.SetDefault("parity.tolerance", 0.0001)
	v.SetDefault("parity.audit_log_path", "validation_log.txt")
	v.SetDefault("report.company", "Company")
	v.SetDefault("report.teams", []string{"DYNAMIC", "ACHIEVERS", "CONCORD", "PASSIONATE"})
	v.SetDefault("report.underperformers", 5)
	v.SetDefault("report.on_track_pct", 95.0)
	v.SetDefault("report.slightly_behind_pct", 85.0)
	v.SetDefault("output.dir", "reports")
	v.SetDefault("output.formats", []string{"md", "html", "xlsx"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "variance.db")
	v.SetDefault("store.snapshot", true)
	v.SetDefault("dispatch.webhook_url", "")
	v.SetDefault("dispatch.recipients", "")
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.initial_backoff_ms", 10000)
	v.SetDefault("dispatch.recipient_pause_secs", 5)
	v.SetDefault("dispatch.timeout_secs", 300)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.lookback_runs", 10)
	v.SetDefault("monitoring.failure_rate_threshold", 0.3)
	v.SetDefault("schedule.time", "20:00")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the values a command mode depends on are present.
// Modes: "run", "validate", "dispatch", "schedule".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run", "validate", "dispatch", "schedule":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Source.Path == "" && c.Source.Dir == "" {
		errs = append(errs, "source.path or source.dir is required")
	}
	if c.Source.SkipRows < 0 {
		errs = append(errs, "source.skip_rows must be >= 0")
	}
	if c.Period.LengthDays <= 0 {
		errs = append(errs, "period.length_days must be > 0")
	}
	if c.Period.NormalEndDay <= 0 || c.Period.NormalEndDay > c.Period.LengthDays {
		errs = append(errs, "period.normal_end_day must be between 1 and period.length_days")
	}
	if c.Parity.Tolerance < 0 {
		errs = append(errs, "parity.tolerance must be >= 0")
	}

	if mode != "validate" && c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}

	if mode == "dispatch" || mode == "schedule" {
		if c.Dispatch.WebhookURL == "" {
			errs = append(errs, "dispatch.webhook_url is required")
		}
		if strings.TrimSpace(c.Dispatch.Recipients) == "" {
			errs = append(errs, "dispatch.recipients is required")
		}
		if c.Dispatch.MaxAttempts < 1 {
			errs = append(errs, "dispatch.max_attempts must be >= 1")
		}
	}

	if mode == "schedule" && c.Schedule.Time == "" {
		errs = append(errs, "schedule.time is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
