package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for slamtrader.
type Config struct {
	Broker       string       `yaml:"broker" validate:"oneof=tdameritrade alpaca simulator"`
	TDAmeritrade TDAmeritrade `yaml:"tdameritrade"`
	Alpaca       Alpaca       `yaml:"alpaca"`
	Orders       Orders       `yaml:"orders"`
	Logging      Logging      `yaml:"logging"`
}

// TDAmeritrade holds the account and OAuth settings for the TD Ameritrade
// API.
type TDAmeritrade struct {
	AccountID   string `yaml:"account_id" validate:"required_if=Enabled true"`
	APIKey      string `yaml:"api_key" validate:"required_if=Enabled true"`
	TokenPath   string `yaml:"token_path" validate:"required_if=Enabled true"`
	RedirectURI string `yaml:"redirect_uri" validate:"omitempty,url"`
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`

	// Enabled is set by Validate when this broker is selected.
	Enabled bool `yaml:"-"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key" validate:"required_if=Enabled true"`
	APISecret string `yaml:"api_secret" validate:"required_if=Enabled true"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`

	Enabled bool `yaml:"-"`
}

// Orders controls how order history is fetched.
type Orders struct {
	// LookbackDays is how far back order history is requested. The broker
	// returns nothing without a window.
	LookbackDays int `yaml:"lookback_days" validate:"gte=1,lte=365"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

const (
	DefaultBroker       = "tdameritrade"
	DefaultLookbackDays = 60
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultRedirectURI  = "https://localhost"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Broker == "" {
		cfg.Broker = DefaultBroker
	}
	if cfg.Orders.LookbackDays == 0 {
		cfg.Orders.LookbackDays = DefaultLookbackDays
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.TDAmeritrade.RedirectURI == "" {
		cfg.TDAmeritrade.RedirectURI = DefaultRedirectURI
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at path, loads a .env file from
// the working directory when one exists, applies environment variable
// overrides and defaults, and validates the result. A missing file at path
// is not an error: the configuration then comes from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SLAMTRADER_BROKER"); v != "" {
		cfg.Broker = v
	}

	if v := os.Getenv("TDA_ACCOUNT_ID"); v != "" {
		cfg.TDAmeritrade.AccountID = v
	}
	if v := os.Getenv("TDA_API_KEY"); v != "" {
		cfg.TDAmeritrade.APIKey = v
	}
	if v := os.Getenv("TDA_TOKEN_PATH"); v != "" {
		cfg.TDAmeritrade.TokenPath = v
	}
	if v := os.Getenv("TDA_REDIRECT_URI"); v != "" {
		cfg.TDAmeritrade.RedirectURI = v
	}
	if v := os.Getenv("TDA_BASE_URL"); v != "" {
		cfg.TDAmeritrade.BaseURL = v
	}

	// Standard Alpaca env vars, the names the SDK itself reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("APCA_API_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ORDERS_LOOKBACK_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ORDERS_LOOKBACK_DAYS: %w", err)
		}
		cfg.Orders.LookbackDays = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration, requiring the credentials of the
// selected broker only.
func (c *Config) Validate() error {
	c.TDAmeritrade.Enabled = c.Broker == "tdameritrade"
	c.Alpaca.Enabled = c.Broker == "alpaca"

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
