// Package config loads the process-wide Suiven configuration.
//
// Configuration is read once at startup from the environment (optionally seeded
// from a .env file) and an optional YAML overlay, then passed by value into every
// builder, parser and query component. Nothing reads the environment afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/sui"
)

// FallbackPackageID is used when SUIVEN_PACKAGE_ID is unset.
const FallbackPackageID = "0x5fa8925d545c3a6ba94bf3a1727db38bb762cd3f4a14af2f8c0621db80e299a3"

// DefaultClockObjectID is the well-known shared clock object.
const DefaultClockObjectID = "0x6"

// Environment variable names for the capability identifiers.
const (
	EnvPackageID      = "SUIVEN_PACKAGE_ID"
	EnvOrganizerCapID = "SUIVEN_ORGANIZER_CAP_ID"
	EnvAdminCapID     = "SUIVEN_ADMIN_CAP_ID"
	EnvClockObjectID  = "SUIVEN_CLOCK_OBJECT_ID"
	EnvConfigFile     = "SUIVEN_CONFIG_FILE"
)

// PurchaseMode selects how Purchase Ticket supplies payment.
type PurchaseMode string

const (
	// PurchaseSplitGas splits the price off the payer's gas coin and passes the coin.
	PurchaseSplitGas PurchaseMode = "split_gas"
	// PurchaseAmountArg passes the price as a plain u64 argument.
	PurchaseAmountArg PurchaseMode = "amount_arg"
)

// Config is the immutable process configuration.
type Config struct {
	PackageID        string
	OrganizerCapID   string
	AdminCapID       string
	ClockObjectID    string
	FeaturedEventIDs []string

	RPCURL       string
	WebsocketURL string
	RPCTimeout   time.Duration
	RPCRateLimit int
	RPCBurst     int

	PurchaseMode   PurchaseMode
	QueryPageLimit int
	CacheTTL       time.Duration
	RedisURL       string

	ProfileDir      string
	GatewayAddr     string
	RefreshSchedule string

	LogLevel  string
	LogFormat string
}

type envSpec struct {
	PackageID       string        `env:"SUIVEN_PACKAGE_ID"`
	OrganizerCapID  string        `env:"SUIVEN_ORGANIZER_CAP_ID"`
	AdminCapID      string        `env:"SUIVEN_ADMIN_CAP_ID"`
	ClockObjectID   string        `env:"SUIVEN_CLOCK_OBJECT_ID"`
	FeaturedIDs     string        `env:"SUIVEN_FEATURED_EVENT_IDS"`
	RPCURL          string        `env:"SUI_RPC_URL,default=https://fullnode.testnet.sui.io:443"`
	WebsocketURL    string        `env:"SUI_WS_URL"`
	RPCTimeout      time.Duration `env:"SUI_RPC_TIMEOUT,default=30s"`
	RPCRateLimit    int           `env:"SUI_RPC_RATE_LIMIT,default=20"`
	RPCBurst        int           `env:"SUI_RPC_BURST,default=40"`
	PurchaseMode    string        `env:"SUIVEN_PURCHASE_MODE,default=split_gas"`
	QueryPageLimit  int           `env:"SUIVEN_QUERY_PAGE_LIMIT,default=50"`
	CacheTTL        time.Duration `env:"SUIVEN_CACHE_TTL,default=30s"`
	RedisURL        string        `env:"SUIVEN_REDIS_URL"`
	ProfileDir      string        `env:"SUIVEN_PROFILE_DIR,default=.suiven/profiles"`
	GatewayAddr     string        `env:"SUIVEN_GATEWAY_ADDR,default=:8080"`
	RefreshSchedule string        `env:"SUIVEN_REFRESH_SCHEDULE,default=@every 1m"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=text"`
}

// fileSpec is the YAML overlay. Non-empty values override the environment.
type fileSpec struct {
	FeaturedEventIDs []string `yaml:"featured_event_ids"`
	PurchaseMode     string   `yaml:"purchase_mode"`
	Gateway          struct {
		Addr string `yaml:"addr"`
	} `yaml:"gateway"`
	RefreshSchedule string `yaml:"refresh_schedule"`
	ProfileDir      string `yaml:"profile_dir"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		PackageID:       FallbackPackageID,
		ClockObjectID:   sui.NormalizeAddress(DefaultClockObjectID),
		RPCURL:          "https://fullnode.testnet.sui.io:443",
		RPCTimeout:      30 * time.Second,
		RPCRateLimit:    20,
		RPCBurst:        40,
		PurchaseMode:    PurchaseSplitGas,
		QueryPageLimit:  50,
		CacheTTL:        30 * time.Second,
		ProfileDir:      ".suiven/profiles",
		GatewayAddr:     ":8080",
		RefreshSchedule: "@every 1m",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads .env files (when present), the environment and the optional YAML overlay.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	var spec envSpec
	if err := envdecode.Decode(&spec); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	cfg := fromEnv(spec)

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromEnv(spec envSpec) Config {
	cfg := Default()

	cfg.PackageID = normalizeOr(spec.PackageID, FallbackPackageID)
	cfg.OrganizerCapID = sui.NormalizeAddress(spec.OrganizerCapID)
	cfg.AdminCapID = sui.NormalizeAddress(spec.AdminCapID)
	cfg.ClockObjectID = normalizeOr(spec.ClockObjectID, DefaultClockObjectID)
	cfg.FeaturedEventIDs = splitIDs(spec.FeaturedIDs)

	cfg.RPCURL = spec.RPCURL
	cfg.WebsocketURL = spec.WebsocketURL
	cfg.RPCTimeout = spec.RPCTimeout
	cfg.RPCRateLimit = spec.RPCRateLimit
	cfg.RPCBurst = spec.RPCBurst
	cfg.PurchaseMode = PurchaseMode(strings.ToLower(strings.TrimSpace(spec.PurchaseMode)))
	cfg.QueryPageLimit = spec.QueryPageLimit
	cfg.CacheTTL = spec.CacheTTL
	cfg.RedisURL = spec.RedisURL
	cfg.ProfileDir = spec.ProfileDir
	cfg.GatewayAddr = spec.GatewayAddr
	cfg.RefreshSchedule = spec.RefreshSchedule
	cfg.LogLevel = spec.LogLevel
	cfg.LogFormat = spec.LogFormat
	return cfg
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fs fileSpec
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if len(fs.FeaturedEventIDs) > 0 {
		c.FeaturedEventIDs = normalizeAll(fs.FeaturedEventIDs)
	}
	if fs.PurchaseMode != "" {
		c.PurchaseMode = PurchaseMode(strings.ToLower(fs.PurchaseMode))
	}
	if fs.Gateway.Addr != "" {
		c.GatewayAddr = fs.Gateway.Addr
	}
	if fs.RefreshSchedule != "" {
		c.RefreshSchedule = fs.RefreshSchedule
	}
	if fs.ProfileDir != "" {
		c.ProfileDir = fs.ProfileDir
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.PurchaseMode {
	case PurchaseSplitGas, PurchaseAmountArg:
	default:
		return fmt.Errorf("SUIVEN_PURCHASE_MODE: unsupported value %q", c.PurchaseMode)
	}
	if c.QueryPageLimit <= 0 {
		return fmt.Errorf("SUIVEN_QUERY_PAGE_LIMIT: must be positive")
	}
	if c.RPCRateLimit < 0 || c.RPCBurst < 0 {
		return fmt.Errorf("SUI_RPC_RATE_LIMIT/SUI_RPC_BURST: must not be negative")
	}
	return nil
}

// OrganizerCap returns the organizer capability id or a configuration error.
func (c Config) OrganizerCap() (string, error) {
	if c.OrganizerCapID == "" {
		return "", svcerrors.ConfigMissing("Organizer capability object ID", EnvOrganizerCapID)
	}
	return c.OrganizerCapID, nil
}

// AdminCap returns the admin capability id or a configuration error.
func (c Config) AdminCap() (string, error) {
	if c.AdminCapID == "" {
		return "", svcerrors.ConfigMissing("Admin capability object ID", EnvAdminCapID)
	}
	return c.AdminCapID, nil
}

// Clock returns the shared clock object id.
func (c Config) Clock() string {
	if c.ClockObjectID == "" {
		return sui.NormalizeAddress(DefaultClockObjectID)
	}
	return c.ClockObjectID
}

func normalizeOr(value, fallback string) string {
	if n := sui.NormalizeAddress(value); n != "" {
		return n
	}
	return sui.NormalizeAddress(fallback)
}

func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return normalizeAll(strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	}))
}

func normalizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		n := sui.NormalizeAddress(id)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
