package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"recycle-watch/internal/logging"
)

// Recycle sources.
const (
	SourceChain = "chain"
	SourceCLI   = "cli"
)

// State backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig       `mapstructure:"app"`
	Logging    logging.Config  `mapstructure:"logging"`
	Subnet     SubnetConfig    `mapstructure:"subnet"`
	Recycle    RecycleConfig   `mapstructure:"recycle"`
	Chain      ChainConfig     `mapstructure:"chain"`
	BTCLI      BTCLIConfig     `mapstructure:"btcli"`
	Thresholds ThresholdConfig `mapstructure:"thresholds"`
	State      StateConfig     `mapstructure:"state"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
	Alerting   AlertingConfig  `mapstructure:"alerting"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Export     ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SubnetConfig selects the watched subnet.
type SubnetConfig struct {
	NetUID string `mapstructure:"netuid"`
}

// RecycleConfig picks the cost source and its fallback.
type RecycleConfig struct {
	Source   string `mapstructure:"source"`
	Fallback string `mapstructure:"fallback"`
}

// ChainConfig covers subtensor RPC access.
type ChainConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BTCLIConfig parameterises the btcli subprocess.
type BTCLIConfig struct {
	Binary       string        `mapstructure:"binary"`
	Network      string        `mapstructure:"network"`
	WalletName   string        `mapstructure:"wallet_name"`
	WalletHotkey string        `mapstructure:"wallet_hotkey"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ThresholdConfig holds the band bounds in TAO.
type ThresholdConfig struct {
	SuperLow float64 `mapstructure:"super_low"`
	Low      float64 `mapstructure:"low"`
}

// StateConfig selects where the notification flags live.
type StateConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig describes the redis state backend.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	Key         string        `mapstructure:"key"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	RunImmediately  bool          `mapstructure:"run_immediately"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// SlackConfig describes the Slack channel.
type SlackConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Channel string `mapstructure:"channel"`
	APIBase string `mapstructure:"api_base"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for reading history.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECYCLEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "recyclewatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("subnet.netuid", "20")

	v.SetDefault("recycle.source", SourceChain)
	v.SetDefault("recycle.fallback", SourceCLI)

	v.SetDefault("chain.endpoint", "wss://entrypoint-finney.opentensor.ai:443")
	v.SetDefault("chain.request_timeout", "30s")

	v.SetDefault("btcli.binary", "btcli")
	v.SetDefault("btcli.network", "finney")
	v.SetDefault("btcli.wallet_name", "default")
	v.SetDefault("btcli.wallet_hotkey", "default")
	v.SetDefault("btcli.timeout", "200s")

	v.SetDefault("thresholds.super_low", 0.5)
	v.SetDefault("thresholds.low", 1.6)

	v.SetDefault("state.backend", BackendFile)
	v.SetDefault("state.path", "cost.json")
	v.SetDefault("state.redis.addr", "localhost:6379")
	v.SetDefault("state.redis.password", "")
	v.SetDefault("state.redis.db", 0)
	v.SetDefault("state.redis.key", "recyclewatch:state")
	v.SetDefault("state.redis.dial_timeout", "5s")

	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.align_to_bucket", false)
	v.SetDefault("scheduler.run_immediately", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x72637977))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.timeout", "10s")
	v.SetDefault("alerting.slack.enabled", true)
	v.SetDefault("alerting.slack.token", "")
	v.SetDefault("alerting.slack.channel", "")
	v.SetDefault("alerting.slack.api_base", "https://slack.com/api")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("export.max_data_points", 10000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if _, err := strconv.ParseUint(c.Subnet.NetUID, 10, 16); err != nil {
		return fmt.Errorf("subnet.netuid must be an integer in 0..65535, got %q", c.Subnet.NetUID)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Thresholds.SuperLow < 0 || c.Thresholds.SuperLow >= c.Thresholds.Low {
		return fmt.Errorf("thresholds must satisfy 0 <= super_low < low (got %v, %v)", c.Thresholds.SuperLow, c.Thresholds.Low)
	}
	if !validSource(c.Recycle.Source) {
		return fmt.Errorf("recycle.source must be %q or %q", SourceChain, SourceCLI)
	}
	if c.Recycle.Fallback != "" {
		if !validSource(c.Recycle.Fallback) {
			return fmt.Errorf("recycle.fallback must be empty, %q or %q", SourceChain, SourceCLI)
		}
		if c.Recycle.Fallback == c.Recycle.Source {
			return fmt.Errorf("recycle.fallback must differ from recycle.source")
		}
	}
	if c.usesSource(SourceChain) && c.Chain.Endpoint == "" {
		return fmt.Errorf("chain.endpoint must be configured")
	}
	if c.usesSource(SourceCLI) && c.BTCLI.Timeout <= 0 {
		return fmt.Errorf("btcli.timeout must be greater than zero")
	}
	switch c.State.Backend {
	case BackendFile:
		if c.State.Path == "" {
			return fmt.Errorf("state.path must be configured")
		}
	case BackendRedis:
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("state.redis.addr must be configured")
		}
	default:
		return fmt.Errorf("state.backend must be %q or %q", BackendFile, BackendRedis)
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ValidateAlerting checks channel credentials. Only commands that deliver
// notifications need it.
func (c *Config) ValidateAlerting() error {
	if !c.Alerting.Enabled {
		return nil
	}
	if c.Alerting.Slack.Enabled {
		if c.Alerting.Slack.Token == "" {
			return fmt.Errorf("alerting.slack.token must be configured")
		}
		if c.Alerting.Slack.Channel == "" {
			return fmt.Errorf("alerting.slack.channel must be configured")
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be configured")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be configured")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

func (c *Config) usesSource(source string) bool {
	return c.Recycle.Source == source || c.Recycle.Fallback == source
}

func validSource(s string) bool {
	return s == SourceChain || s == SourceCLI
}
