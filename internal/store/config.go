package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"salgsmester/internal/types"
)

var (
	// ErrMissingCredentials is returned when username or password is not configured.
	ErrMissingCredentials = errors.New("missing username/password: set SALGSMESTER_NORDNET_USERNAME and SALGSMESTER_NORDNET_PASSWORD")
	// ErrMissingAccountID is returned when no account id is configured for portfolio lookups.
	ErrMissingAccountID = errors.New("missing account id: set SALGSMESTER_ACCOUNT_ID")
)

const (
	ModeLive   = "LIVE"
	ModeDryRun = "DRY_RUN"

	DataSourceLive   = "LIVE"
	DataSourceStatic = "STATIC"
)

// Credentials authenticate against Nordnet. The user fills them in; nothing is committed.
type Credentials struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	SecretKey string `yaml:"secret_key"`
	AccountID string `yaml:"account_id"`
}

// Strategy mirrors types.StrategyTargets with yaml-friendly fields.
type Strategy struct {
	WeeklyGrowthTarget     float64  `yaml:"weekly_growth_target"`
	MaxPortfolioVolatility float64  `yaml:"max_portfolio_volatility"`
	MinTradesPerWeek       int      `yaml:"min_trades_per_week"`
	RebalanceCadence       Duration `yaml:"rebalance_cadence"`
	MaxPerSector           int      `yaml:"max_per_sector"`
	SellNetOfFees          bool     `yaml:"sell_net_of_fees"`
}

type Report struct {
	EmailRecipient string `yaml:"email_recipient"`
	EmailSender    string `yaml:"email_sender"`
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	SMTPUsername   string `yaml:"smtp_username"`
	SMTPPassword   string `yaml:"smtp_password"`
	RetentionDays  int    `yaml:"retention_days"`
}

type Schedule struct {
	Cron   string `yaml:"cron"`
	Listen string `yaml:"listen"`
}

type Config struct {
	Mode                  string             `yaml:"mode"`
	DataSource            string             `yaml:"data_source"`
	SnapshotFile          string             `yaml:"snapshot_file"`
	BaseURL               string             `yaml:"base_url"`
	RequestTimeoutSeconds int                `yaml:"request_timeout_seconds"`
	Credentials           Credentials        `yaml:"credentials"`
	Strategy              Strategy           `yaml:"strategy"`
	Fees                  types.FeeStructure `yaml:"fees"`
	DataDirectory         string             `yaml:"data_directory"`
	Report                Report             `yaml:"report"`
	Schedule              Schedule           `yaml:"schedule"`
}

// Duration unmarshals yaml values like "24h" or "90m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Mode:                  ModeLive,
		DataSource:            DataSourceLive,
		BaseURL:               "https://www.nordnet.no/api",
		RequestTimeoutSeconds: 10,
		Strategy: Strategy{
			WeeklyGrowthTarget:     0.05,
			MaxPortfolioVolatility: 0.25,
			MinTradesPerWeek:       1,
			RebalanceCadence:       Duration(24 * time.Hour),
			MaxPerSector:           2,
		},
		Fees: types.FeeStructure{
			FixedFee:     29.0,
			VariableRate: 0.00055,
		},
		DataDirectory: "data",
		Report: Report{
			SMTPPort: 587,
		},
		Schedule: Schedule{
			Cron:   "0 30 9 * * MON-FRI",
			Listen: ":9090",
		},
	}
}

// Targets converts the strategy section into the values the strategy consumes.
func (c *Config) Targets() types.StrategyTargets {
	return types.StrategyTargets{
		WeeklyGrowthTarget:     c.Strategy.WeeklyGrowthTarget,
		MaxPortfolioVolatility: c.Strategy.MaxPortfolioVolatility,
		MinTradesPerWeek:       c.Strategy.MinTradesPerWeek,
		RebalanceCadence:       time.Duration(c.Strategy.RebalanceCadence),
	}
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	if c.Mode != ModeLive && c.Mode != ModeDryRun {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != DataSourceLive && c.DataSource != DataSourceStatic {
		return fmt.Errorf("invalid data_source '%s': must be 'STATIC' or 'LIVE'", c.DataSource)
	}
	if c.DataSource == DataSourceStatic && c.SnapshotFile == "" {
		return errors.New("snapshot_file is required when data_source is STATIC")
	}
	if c.Strategy.MaxPortfolioVolatility <= 0 {
		return fmt.Errorf("strategy.max_portfolio_volatility must be positive, got %.4f", c.Strategy.MaxPortfolioVolatility)
	}
	if c.Strategy.RebalanceCadence < 0 {
		return fmt.Errorf("strategy.rebalance_cadence must not be negative, got %s", time.Duration(c.Strategy.RebalanceCadence))
	}
	if c.Strategy.MaxPerSector <= 0 {
		return fmt.Errorf("strategy.max_per_sector must be positive, got %d", c.Strategy.MaxPerSector)
	}
	if c.Fees.FixedFee < 0 || c.Fees.VariableRate < 0 {
		return fmt.Errorf("fees must not be negative, got fixed=%.2f rate=%.5f", c.Fees.FixedFee, c.Fees.VariableRate)
	}
	if c.DataDirectory == "" {
		return errors.New("data_directory cannot be empty")
	}
	return nil
}

// RequireCredentials checks what a live login and portfolio lookup need.
func (c *Config) RequireCredentials() error {
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		return ErrMissingCredentials
	}
	if c.Credentials.AccountID == "" {
		return ErrMissingAccountID
	}
	return nil
}

// LoadConfig reads path (optional: a missing file leaves the defaults), applies
// SALGSMESTER_* environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return c, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Credentials.Username, "SALGSMESTER_NORDNET_USERNAME")
	setString(&c.Credentials.Password, "SALGSMESTER_NORDNET_PASSWORD")
	setString(&c.Credentials.SecretKey, "SALGSMESTER_NORDNET_SECRET")
	setString(&c.Credentials.AccountID, "SALGSMESTER_ACCOUNT_ID")
	setString(&c.Mode, "SALGSMESTER_MODE")
	setString(&c.DataDirectory, "SALGSMESTER_DATA_DIR")

	floats := []struct {
		dst *float64
		key string
	}{
		{&c.Strategy.WeeklyGrowthTarget, "SALGSMESTER_WEEKLY_TARGET"},
		{&c.Strategy.MaxPortfolioVolatility, "SALGSMESTER_MAX_VOL"},
		{&c.Fees.FixedFee, "SALGSMESTER_FIXED_FEE"},
		{&c.Fees.VariableRate, "SALGSMESTER_VARIABLE_FEE"},
	}
	for _, f := range floats {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = parsed
	}

	if v := os.Getenv("SALGSMESTER_MIN_TRADES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SALGSMESTER_MIN_TRADES: %w", err)
		}
		c.Strategy.MinTradesPerWeek = n
	}
	if v := os.Getenv("SALGSMESTER_CADENCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SALGSMESTER_CADENCE: %w", err)
		}
		c.Strategy.RebalanceCadence = Duration(d)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
