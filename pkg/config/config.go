package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// Timeout is the long-polling timeout in seconds.
	Timeout int `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// OpenAIConfig enables the model-backed time parser when APIKey is set.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type PlannerConfig struct {
	Grace          time.Duration `mapstructure:"grace"`
	Timezone       string        `mapstructure:"timezone"`
	IncludeCreator bool          `mapstructure:"include_creator"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Location resolves the configured timezone. "Local" and "" mean the host zone.
func (c PlannerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Telegram.Timeout <= 0 {
		errs = append(errs, errors.New("telegram.timeout must be positive"))
	}
	if !c.Database.UseInMemory && c.Database.DBName == "" {
		errs = append(errs, errors.New("database.dbname is required unless use_in_memory is set"))
	}
	if c.Planner.Grace <= 0 {
		errs = append(errs, errors.New("planner.grace must be positive"))
	}
	if c.Planner.HistoryLimit <= 0 {
		errs = append(errs, errors.New("planner.history_limit must be positive"))
	}
	if _, err := c.Planner.Location(); err != nil {
		errs = append(errs, fmt.Errorf("planner.timezone: %w", err))
	}
	return errors.Join(errs...)
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.timeout", 60)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 150)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("planner.grace", "500ms")
	v.SetDefault("planner.timezone", "Local")
	v.SetDefault("planner.include_creator", false)
	v.SetDefault("planner.history_limit", 10)
	v.SetDefault("log.development", false)
}

// LoadConfig reads path and applies environment overrides. TELEGRAM_TOKEN,
// OPENAI_API_KEY and DATABASE_URL take precedence over the file, as does
// any PLANBOT_<SECTION>_<KEY> variable.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("planbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Unprefixed variables used by common hosting platforms.
	env := viper.New()
	env.AutomaticEnv()

	if dbURL := env.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.UseInMemory = config.Database.UseInMemory
		config.Database = dbConfig
	}
	if token := env.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := env.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}
