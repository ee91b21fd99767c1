package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModePerformance Mode = "performance"
	ModeBudget      Mode = "budget"
)

// Setting selects the revenue model for one campaign. Exactly one of
// UnitPrice / FeeRate is meaningful depending on Mode.
type Setting struct {
	Mode      Mode    `yaml:"mode"`
	UnitPrice float64 `yaml:"unit_price"`
	FeeRate   float64 `yaml:"fee_rate"`
}

// Campaigns is the static resolution and attribution configuration: raw
// identifiers map into a fixed campaign vocabulary, and each campaign carries
// its revenue model. Loaded once at startup, immutable afterwards.
type Campaigns struct {
	// AccountPrefixes resolves Meta account names by prefix match.
	AccountPrefixes map[string]string `yaml:"account_prefixes"`
	// FolderNames resolves Beyond folder names by exact match, after
	// whitespace normalization.
	FolderNames map[string]string `yaml:"folder_names"`
	Settings    map[string]Setting `yaml:"settings"`
}

// Names returns the campaign vocabulary (the FolderNames values), the set a
// date is expected to cover in the Beyond audit.
func (c Campaigns) Names() []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range c.FolderNames {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

type SheetNames struct {
	MetaLive      string `yaml:"meta_live"`
	MetaHistory   string `yaml:"meta_history"`
	BeyondLive    string `yaml:"beyond_live"`
	BeyondHistory string `yaml:"beyond_history"`
}

type Config struct {
	Port        string
	LogLevel    slog.Level
	HTTPTimeout time.Duration

	SheetID      string
	SheetBaseURL string // override for tests; empty means Google Sheets gviz
	Sheets       SheetNames

	RedisAddr string
	CacheTTL  time.Duration

	Campaigns Campaigns
}

// fileConfig is the YAML overlay shape.
type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Sheets struct {
		ID            string `yaml:"id"`
		BaseURL       string `yaml:"base_url"`
		MetaLive      string `yaml:"meta_live"`
		MetaHistory   string `yaml:"meta_history"`
		BeyondLive    string `yaml:"beyond_live"`
		BeyondHistory string `yaml:"beyond_history"`
	} `yaml:"sheets"`
	Cache struct {
		RedisAddr  string `yaml:"redis_addr"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Campaigns *Campaigns `yaml:"campaigns"`
}

// Default mirrors the production mapping tables and attribution settings.
func Default() Config {
	return Config{
		Port:        "8080",
		LogLevel:    slog.LevelInfo,
		HTTPTimeout: 15 * time.Second,
		SheetID:     "14pa730BytKIRONuhqljERM8ag8zm3bEew3zv6lXbMGU",
		Sheets: SheetNames{
			MetaLive:      "Meta_Live",
			MetaHistory:   "Meta_History",
			BeyondLive:    "Beyond_Live",
			BeyondHistory: "Beyond_History",
		},
		CacheTTL: 10 * time.Minute,
		Campaigns: Campaigns{
			AccountPrefixes: map[string]string{
				"allattain01": "SAC_成果",
				"allattain05": "SAC_予算",
				"allattain04": "ルーチェ_予算",
			},
			FolderNames: map[string]string{
				"【運用】SAC_成果":   "SAC_成果",
				"【運用】SAC_予算":   "SAC_予算",
				"【運用】ルーチェ_予算": "ルーチェ_予算",
			},
			Settings: map[string]Setting{
				"SAC_成果":   {Mode: ModePerformance, UnitPrice: 90000},
				"SAC_予算":   {Mode: ModeBudget, FeeRate: 0.2},
				"ルーチェ_予算": {Mode: ModeBudget, FeeRate: 0.2},
			},
		},
	}
}

// Load builds the runtime config: embedded defaults, then the optional YAML
// file at CONFIG_PATH, then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if fc.Server.Port != "" {
		c.Port = fc.Server.Port
	}
	if fc.Sheets.ID != "" {
		c.SheetID = fc.Sheets.ID
	}
	if fc.Sheets.BaseURL != "" {
		c.SheetBaseURL = fc.Sheets.BaseURL
	}
	if fc.Sheets.MetaLive != "" {
		c.Sheets.MetaLive = fc.Sheets.MetaLive
	}
	if fc.Sheets.MetaHistory != "" {
		c.Sheets.MetaHistory = fc.Sheets.MetaHistory
	}
	if fc.Sheets.BeyondLive != "" {
		c.Sheets.BeyondLive = fc.Sheets.BeyondLive
	}
	if fc.Sheets.BeyondHistory != "" {
		c.Sheets.BeyondHistory = fc.Sheets.BeyondHistory
	}
	if fc.Cache.RedisAddr != "" {
		c.RedisAddr = fc.Cache.RedisAddr
	}
	if fc.Cache.TTLSeconds > 0 {
		c.CacheTTL = time.Duration(fc.Cache.TTLSeconds) * time.Second
	}
	if fc.Campaigns != nil {
		c.Campaigns = *fc.Campaigns
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("SHEET_ID"); v != "" {
		c.SheetID = v
	}
	if v := os.Getenv("SHEET_BASE_URL"); v != "" {
		c.SheetBaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CacheTTL = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			c.HTTPTimeout = d
		}
	}
	if os.Getenv("LOG_LEVEL") == "debug" {
		c.LogLevel = slog.LevelDebug
	}
}
