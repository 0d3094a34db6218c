package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"livestock-purchasing/internal/core"

	"gopkg.in/yaml.v3"
)

// Config is the client configuration of purchasectl.
type Config struct {
	API        APIConfig                `yaml:"api"`
	MasterData MasterDataConfig         `yaml:"master_data"`
	Profiles   map[string]ProfileConfig `yaml:"profiles"`
}

// APIConfig points at the purchasing backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// MasterDataConfig controls the option-list cache.
type MasterDataConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ProfileConfig overrides the built-in profile of one purchase kind.
// Unset fields keep the built-in value.
type ProfileConfig struct {
	Resource         string `yaml:"resource"`
	Basis            string `yaml:"basis"`
	RequireUnitPrice *bool  `yaml:"require_unit_price"`
	RequireItem      *bool  `yaml:"require_item"`
	RequireBank      *bool  `yaml:"require_bank"`
}

const (
	defaultBaseURL  = "http://localhost:8080/api"
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 5 * time.Minute
)

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Profile returns the effective profile for kind.
func (c *Config) Profile(kind core.PurchaseKind) (core.Profile, error) {
	p, err := core.DefaultProfile(kind)
	if err != nil {
		return core.Profile{}, err
	}
	o, ok := c.Profiles[string(kind)]
	if !ok {
		return p, nil
	}
	if o.Resource != "" {
		p.Resource = strings.Trim(o.Resource, "/")
	}
	if o.Basis != "" {
		p.Basis = core.TotalBasis(o.Basis)
	}
	if o.RequireUnitPrice != nil {
		p.RequireUnitPrice = *o.RequireUnitPrice
	}
	if o.RequireItem != nil {
		p.RequireItem = *o.RequireItem
	}
	if o.RequireBank != nil {
		p.RequireBank = *o.RequireBank
	}
	return p, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PURCHASE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PURCHASE_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("PURCHASE_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PURCHASE_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("MASTERDATA_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MASTERDATA_TTL: %w", err)
		}
		cfg.MasterData.CacheTTL = d
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaultBaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultTimeout
	}
	if cfg.MasterData.CacheTTL == 0 {
		cfg.MasterData.CacheTTL = defaultCacheTTL
	}
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if cfg.MasterData.CacheTTL < 0 {
		return fmt.Errorf("master_data.cache_ttl must not be negative")
	}
	for name, p := range cfg.Profiles {
		if _, err := core.ParseKind(name); err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
		switch core.TotalBasis(p.Basis) {
		case "", core.BasisQuantity, core.BasisWeight:
		default:
			return fmt.Errorf("profiles.%s.basis must be quantity or weight, got %q", name, p.Basis)
		}
	}
	return nil
}
