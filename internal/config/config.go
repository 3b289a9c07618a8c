package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the main config struct
type Config struct {
	Environment string         `yaml:"environment" env:"ENVIRONMENT" env-default:"production" env-description:"Environment name"`
	Verbose     string         `yaml:"verbose"     env:"VERBOSE"     env-default:"info"       env-description:"Verbose mode for debug output"`
	Database    DatabaseConfig `yaml:"database"`
	Telegram    TelegramConfig `yaml:"telegram"`
	Proxy       ProxyConfig    `yaml:"proxy"`
	Origin      OriginConfig   `yaml:"origin"`
	Payment     PaymentConfig  `yaml:"payment"`
	Quota       QuotaConfig    `yaml:"quota"`
	Relay       RelayConfig    `yaml:"relay"`
	Monitor     MonitorConfig  `yaml:"monitor"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	API         APIConfig      `yaml:"api"`
}

// Telegram config
type TelegramConfig struct {
	Token         string        `yaml:"token"           env:"TELEGRAM_TOKEN"           env-required:"true" env-description:"Telegram bot token"`
	Timeout       time.Duration `yaml:"timeout"         env:"TELEGRAM_TIMEOUT"         env-default:"10s"   env-description:"Long polling timeout"`
	ArchiveChatID int64         `yaml:"archive_chat_id" env:"TELEGRAM_ARCHIVE_CHAT_ID" env-required:"true" env-description:"Private chat holding the canonical archive copies"`
	Whitelist     []int64       `yaml:"whitelist"       env:"TELEGRAM_WHITELIST"       env-description:"Allowed user ids, empty allows everyone"`
	AdminID       int64         `yaml:"admin_id"        env:"TELEGRAM_ADMIN_ID"        env-default:"0"     env-description:"Admin user id for order notifications"`
}

// SQLite or PostgreSQL config
type DatabaseConfig struct {
	// Driver is the database driver to use. Supported drivers are "sqlite3" and "postgres".
	Driver     string `yaml:"driver"     env:"DATABASE_DRIVER"     env-default:"sqlite3"            env-description:"Database driver to use"`
	Connection string `yaml:"connection" env:"DATABASE_CONNECTION" env-default:"message_forward.db" env-description:"Database connection string"`
}

// Sidecar agent holding the delegated personal identity, consumed over a
// local HTTP API.
type OriginConfig struct {
	Endpoint string `yaml:"endpoint" env:"ORIGIN_ENDPOINT" env-default:"http://127.0.0.1:8484" env-description:"Origin agent base URL"`
}

// Outbound SOCKS5 proxy, used for the Bot API lookups and the ledger queries.
type ProxyConfig struct {
	Address  string `yaml:"address"  env:"PROXY_ADDRESS"  env-default:""`
	Port     int    `yaml:"port"     env:"PROXY_PORT"     env-default:"0"`
	Username string `yaml:"username" env:"PROXY_USERNAME" env-default:""`
	Password string `yaml:"password" env:"PROXY_PASSWORD" env-default:""`
}

// TRC20 payment settings.
type PaymentConfig struct {
	Wallet        string        `yaml:"wallet"         env:"PAYMENT_WALLET"         env-default:""    env-description:"USDT TRC20 receiving address"`
	APIKey        string        `yaml:"api_key"        env:"PAYMENT_API_KEY"        env-default:""    env-description:"TronGrid API key, empty disables auto-confirmation"`
	Contract      string        `yaml:"contract"       env:"PAYMENT_CONTRACT"       env-default:"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t" env-description:"USDT contract address"`
	Endpoint      string        `yaml:"endpoint"       env:"PAYMENT_ENDPOINT"       env-default:"https://api.trongrid.io"`
	CheckInterval time.Duration `yaml:"check_interval" env:"PAYMENT_CHECK_INTERVAL" env-default:"60s" env-description:"Reconciliation poll interval"`
	OrderTimeout  time.Duration `yaml:"order_timeout"  env:"PAYMENT_ORDER_TIMEOUT"  env-default:"24h" env-description:"Pending order lifetime before cancellation"`
}

// Quota and referral settings.
type QuotaConfig struct {
	DailyFree    int `yaml:"daily_free"    env:"QUOTA_DAILY_FREE"    env-default:"5"  env-description:"Free relays granted each day"`
	InviteReward int `yaml:"invite_reward" env:"QUOTA_INVITE_REWARD" env-default:"5"  env-description:"Paid relays credited per successful referral"`
	InviteCap    int `yaml:"invite_cap"    env:"QUOTA_INVITE_CAP"    env-default:"20" env-description:"Redeemed referrals allowed per inviter"`
}

// Relay tuning.
type RelayConfig struct {
	GroupWindow    int    `yaml:"group_window"     env:"RELAY_GROUP_WINDOW"     env-default:"10" env-description:"Half-width of the album sibling scan"`
	MaxForwardHops int    `yaml:"max_forward_hops" env:"RELAY_MAX_FORWARD_HOPS" env-default:"5"  env-description:"Bound on peeling forwarded origins"`
	LockShards     int    `yaml:"lock_shards"      env:"RELAY_LOCK_SHARDS"      env-default:"64" env-description:"Stripes in the per-user lock set"`
	TempDir        string `yaml:"temp_dir"         env:"RELAY_TEMP_DIR"         env-default:""   env-description:"Staging directory, empty uses the OS default"`
}

// Resource monitor thresholds (percent) and sampling interval.
type MonitorConfig struct {
	CPUThreshold    float64       `yaml:"cpu_threshold"     env:"MONITOR_CPU_THRESHOLD"     env-default:"80"`
	MemoryThreshold float64       `yaml:"memory_threshold"  env:"MONITOR_MEMORY_THRESHOLD"  env-default:"80"`
	DiskIOThreshold float64       `yaml:"disk_io_threshold" env:"MONITOR_DISK_IO_THRESHOLD" env-default:"80"`
	Interval        time.Duration `yaml:"interval"          env:"MONITOR_INTERVAL"          env-default:"5s"`
}

// InfluxDB metrics sink; empty URL falls back to the no-op implementation.
type MetricsConfig struct {
	URL    string `yaml:"url"    env:"METRICS_URL"    env-default:""`
	Token  string `yaml:"token"  env:"METRICS_TOKEN"  env-default:""`
	Org    string `yaml:"org"    env:"METRICS_ORG"    env-default:""`
	Bucket string `yaml:"bucket" env:"METRICS_BUCKET" env-default:""`
}

// API config
type APIConfig struct {
	Host         string        `yaml:"host"          env:"API_HOST"          env-default:"localhost" env-description:"API host address to bind to"`
	Port         int           `yaml:"port"          env:"API_PORT"          env-default:"8080"      env-description:"API port to bind to"`
	Timeout      time.Duration `yaml:"timeout"       env:"API_TIMEOUT"       env-default:"30s"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  env:"API_READ_TIMEOUT"  env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"API_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  env:"API_IDLE_TIMEOUT"  env-default:"15s"`
	Secret       string        `yaml:"secret"        env:"API_SECRET"        env-default:"" env-description:"Bearer token for the admin routes, empty disables them"`
}

// ConfigError reports a fatal configuration problem at startup.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// MustLoadConfig reads the YAML config named by CONFIG_PATH (default
// config.yml) with environment overrides. A missing default file is fine,
// environment-only configuration is supported; a missing explicit path, or a
// missing required credential, refuses to start.
func MustLoadConfig() (*Config, error) {
	var config Config

	configPath := os.Getenv("CONFIG_PATH")

	explicit := configPath != ""
	if !explicit {
		configPath = "config.yml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, &ConfigError{
				Message: fmt.Sprintf("Config file does not exist: %s", configPath),
			}
		}

		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, &ConfigError{
				Message: fmt.Sprintf("Cannot read config from environment: %s", err),
			}
		}

		return &config, nil
	}

	if err := cleanenv.ReadConfig(configPath, &config); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Cannot read config file: %s", err),
		}
	}

	return &config, nil
}
