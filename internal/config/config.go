package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port      int `mapstructure:"port"`
	DebugPort int `mapstructure:"debug_port"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PendingPrefix string        `mapstructure:"pending_prefix"`
	PendingTTL    time.Duration `mapstructure:"pending_ttl"`
	LedgerPrefix  string        `mapstructure:"ledger_prefix"`
}

type JWTConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	LinkTTL    time.Duration `mapstructure:"link_ttl"`
	IDTokenTTL time.Duration `mapstructure:"id_token_ttl"`
}

// SignInConfig drives the return URL policy and the local identity provider.
type SignInConfig struct {
	DefaultOrigin     string        `mapstructure:"default_origin"`
	LocalDevURL       string        `mapstructure:"local_dev_url"`
	DynamicLinkDomain string        `mapstructure:"dynamic_link_domain"`
	AuthorizedDomains []string      `mapstructure:"authorized_domains"`
	EmailLinkEnabled  bool          `mapstructure:"email_link_enabled"`
	LinkCooldown      time.Duration `mapstructure:"link_cooldown"`
}

type MailConfig struct {
	Driver  string `mapstructure:"driver"`
	From    string `mapstructure:"from"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	SignIn   SignInConfig   `mapstructure:"signin"`
	Mail     MailConfig     `mapstructure:"mail"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 50051)
	v.SetDefault("server.debug_port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "fyra")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pending_prefix", "signin:pending")
	v.SetDefault("redis.pending_ttl", 24*time.Hour)
	v.SetDefault("redis.ledger_prefix", "signin:ledger")

	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.issuer", "fyra-signin")
	v.SetDefault("jwt.link_ttl", time.Hour)
	v.SetDefault("jwt.id_token_ttl", time.Hour)

	v.SetDefault("signin.default_origin", "http://localhost:3001")
	v.SetDefault("signin.dynamic_link_domain", "")
	v.SetDefault("signin.local_dev_url", "http://localhost:3001")
	v.SetDefault("signin.authorized_domains", []string{"localhost"})
	v.SetDefault("signin.email_link_enabled", true)
	v.SetDefault("signin.link_cooldown", 30*time.Second)

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.api_key", "")
	v.SetDefault("mail.from", "Fyra <no-reply@fyra.network>")
	v.SetDefault("mail.base_url", "https://api.resend.com")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// LoadConfig reads config.yaml from path and environment variables into Config.
// A missing file is not an error; defaults and the environment still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWT.SigningKey == "" {
		return errors.New("jwt.signing_key must be set")
	}
	switch c.Mail.Driver {
	case "log":
	case "resend":
		if c.Mail.APIKey == "" {
			return errors.New("mail.api_key must be set for the resend driver")
		}
	default:
		return fmt.Errorf("unknown mail driver %q", c.Mail.Driver)
	}
	return nil
}
