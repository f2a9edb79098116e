package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment string `mapstructure:"environment"`
	Server      struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	DB        DB `mapstructure:"db"`
	Providers struct {
		OpenAIBaseURL    string `mapstructure:"openai_base_url"`
		AnthropicBaseURL string `mapstructure:"anthropic_base_url"`
		GoogleBaseURL    string `mapstructure:"google_base_url"`
	} `mapstructure:"providers"`
	Invocation struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"invocation"`
	Similarity struct {
		URL          string        `mapstructure:"url"`
		Timeout      time.Duration `mapstructure:"timeout"`
		TokenURL     string        `mapstructure:"token_url"`
		ClientID     string        `mapstructure:"client_id"`
		ClientSecret string        `mapstructure:"client_secret"`
	} `mapstructure:"similarity"`
	Playground struct {
		SystemPrompt string `mapstructure:"system_prompt"`
	} `mapstructure:"playground"`
	Auth struct {
		Enabled       bool   `mapstructure:"enabled"`
		Issuer        string `mapstructure:"issuer"`
		ClientID      string `mapstructure:"client_id"`
		DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
		DevUser       string `mapstructure:"dev_user"`
	} `mapstructure:"auth"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// DB selects and configures the store behind the run ledger.
type DB struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

// DSN returns the postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// IsDev reports whether the service runs in the development environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Environment, "dev")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.hostnames", []string{})
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "mccarthy")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "mccarthy.db")
	v.SetDefault("providers.openai_base_url", "https://api.openai.com")
	v.SetDefault("providers.anthropic_base_url", "https://api.anthropic.com")
	v.SetDefault("providers.google_base_url", "")
	v.SetDefault("invocation.timeout", 60*time.Second)
	v.SetDefault("similarity.url", "http://localhost:8001")
	v.SetDefault("similarity.timeout", 15*time.Second)
	v.SetDefault("similarity.token_url", "")
	v.SetDefault("similarity.client_id", "")
	v.SetDefault("similarity.client_secret", "")
	v.SetDefault("playground.system_prompt", "You are a helpful assistant.")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.dev_mode_bypass", false)
	v.SetDefault("auth.dev_user", "dev@localhost")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig loads the configuration from a file and the environment.
// When path is empty, config.yaml is looked up in . and ./config and may be
// absent. Environment variables use the MCCARTHY_ prefix, for example
// MCCARTHY_DB_DRIVER.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("mccarthy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing || path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Auth.Issuer = normalizeURL(config.Auth.Issuer)
	config.Similarity.URL = normalizeURL(config.Similarity.URL)
	config.Providers.OpenAIBaseURL = normalizeURL(config.Providers.OpenAIBaseURL)
	config.Providers.AnthropicBaseURL = normalizeURL(config.Providers.AnthropicBaseURL)
	config.Providers.GoogleBaseURL = normalizeURL(config.Providers.GoogleBaseURL)

	return &config, nil
}

// normalizeURL strips surrounding space and trailing slashes so paths can be
// appended without doubling separators.
func normalizeURL(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
