package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"coop-loans/internal/domain/settings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	LogLevel  string
	LogFormat string

	IdempTTLSecs  int
	NotifyChannel string

	// Rule defaults, overridden at runtime by business_config rows.
	Rules         settings.Thresholds
	RulesCacheTTL time.Duration
}

var defaults = map[string]any{
	"app.port": "8080",

	"mysql.host": "mysql",
	"mysql.port": "3306",
	"mysql.db":   "coop",
	"mysql.user": "coop",
	"mysql.pass": "coop",

	"redis.addr": "redis:6379",
	"redis.db":   0,

	"log.level":  "info",
	"log.format": "json",

	"idempotency.ttl_seconds": 300,
	"notify.channel":          "coop:notifications",

	"rules.cache_ttl": "60s",

	"rules." + settings.KeyMinMembershipMonths:     6,
	"rules." + settings.KeyMinMandatorySavings:     "20000",
	"rules." + settings.KeyLoanToSavingsMultiplier: "3",
	"rules." + settings.KeySystemMaxLoanAmount:     "5000000",
	"rules." + settings.KeyMaxActiveLoans:          2,
	"rules." + settings.KeyGuarantorThreshold:      "500000",
	"rules." + settings.KeyMinGuarantorsRequired:   2,
	"rules." + settings.KeyAutoApprovalLimit:       "50000",
	"rules." + settings.KeyPenaltyRate:             "2",
	"rules." + settings.KeyGracePeriodDays:         7,
	"rules." + settings.KeySavingsWindowMonths:     0,
}

// Load reads .env (if any), then configs/config.yaml (if any), then the
// process environment. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	c := &Config{
		AppPort:   v.GetString("app.port"),
		MySQLHost: v.GetString("mysql.host"),
		MySQLPort: v.GetString("mysql.port"),
		MySQLDB:   v.GetString("mysql.db"),
		MySQLUser: v.GetString("mysql.user"),
		MySQLPass: v.GetString("mysql.pass"),

		RedisAddr: v.GetString("redis.addr"),
		RedisDB:   v.GetInt("redis.db"),

		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),

		IdempTTLSecs:  v.GetInt("idempotency.ttl_seconds"),
		NotifyChannel: v.GetString("notify.channel"),
		RulesCacheTTL: v.GetDuration("rules.cache_ttl"),
	}
	for _, key := range settings.Keys {
		if err := c.Rules.Apply(key, v.GetString("rules."+key)); err != nil {
			return nil, fmt.Errorf("rule default: %w", err)
		}
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.RedisAddr == "" {
		return errors.New("missing REDIS_ADDR")
	}
	if c.RulesCacheTTL <= 0 {
		return fmt.Errorf("invalid RULES_CACHE_TTL %s", c.RulesCacheTTL)
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rule defaults: %w", err)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME; loc=UTC keeps join dates stable
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
