package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	// API authentication. APISecretHash is a bcrypt hash of the shared API
	// secret; JWTSecret signs owner-scoped bearer tokens.
	APISecretHash    string `env:"API_SECRET_HASH"`
	JWTSecret        string `env:"JWT_SECRET"`
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"60"`

	// Ledger backend: "memory" for dev/test, "erc20" for a live token.
	LedgerBackend   string `env:"LEDGER_BACKEND" envDefault:"memory"`
	RPCURL          string `env:"WEB3_RPC_URL" envDefault:"https://rpc.sepolia.org"`
	TokenAddress    string `env:"TOKEN_ADDRESS"`
	SavingsAddress  string `env:"SAVINGS_ADDRESS,required"`
	BalanceCacheTTL int    `env:"BALANCE_CACHE_TTL_SECONDS" envDefault:"30"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpireMinutes) * time.Minute
}

func (c *Config) BalanceTTL() time.Duration {
	return time.Duration(c.BalanceCacheTTL) * time.Second
}

func (c *Config) Validate(isProduction bool) error {
	if c.APISecretHash != "" {
		if !strings.HasPrefix(c.APISecretHash, "$2a$") &&
			!strings.HasPrefix(c.APISecretHash, "$2b$") &&
			!strings.HasPrefix(c.APISecretHash, "$2y$") {
			return fmt.Errorf("API_SECRET_HASH must be a bcrypt hash (generate with: htpasswd -bnBC 10 '' <secret>)")
		}
	}

	if c.LedgerBackend != "memory" && c.LedgerBackend != "erc20" {
		return fmt.Errorf("LEDGER_BACKEND must be \"memory\" or \"erc20\", got %q", c.LedgerBackend)
	}
	if c.LedgerBackend == "erc20" && c.TokenAddress == "" {
		return fmt.Errorf("TOKEN_ADDRESS is required when LEDGER_BACKEND=erc20")
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if c.APISecretHash == "" {
			return fmt.Errorf("API_SECRET_HASH is required in production")
		}
		if c.LedgerBackend == "memory" {
			log.Warn().Msg("LEDGER_BACKEND=memory in production: balances are not durable")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
