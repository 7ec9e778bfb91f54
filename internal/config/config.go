package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	AuthSigningKey     string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer         string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience       string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	RootRoleName       string   `mapstructure:"ROOT_ROLE_NAME"`
	OverrideTTLMinutes int      `mapstructure:"OVERRIDE_TTL_MINUTES"`
	OverrideMaxPerHour int      `mapstructure:"OVERRIDE_MAX_PER_HOUR"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ROOT_ROLE_NAME", "ADMIN")
	v.SetDefault("OVERRIDE_TTL_MINUTES", 15)
	v.SetDefault("OVERRIDE_MAX_PER_HOUR", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("ROOT_ROLE_NAME")
	v.BindEnv("OVERRIDE_TTL_MINUTES")
	v.BindEnv("OVERRIDE_MAX_PER_HOUR")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevSessionMiddleware is active; unauthenticated requests")
		log.Println("WARNING: receive a synthetic administrator session.")
		log.Println("WARNING: Set ENV=production and AUTH_SIGNING_KEY for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// OverrideTTL returns the default lifetime of an emergency override token.
func (c *Config) OverrideTTL() time.Duration {
	return time.Duration(c.OverrideTTLMinutes) * time.Minute
}

// Validate checks that the configuration is safe to run. Outside development
// mode a JWT signing key must be configured so that session tokens are
// actually verified, and the override limits must stay positive.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY must be set when ENV=%q. "+
				"Refusing to start without session verification configuration", c.Env)
	}
	if c.OverrideTTLMinutes <= 0 {
		return fmt.Errorf("OVERRIDE_TTL_MINUTES must be positive, got %d", c.OverrideTTLMinutes)
	}
	if c.OverrideMaxPerHour <= 0 {
		return fmt.Errorf("OVERRIDE_MAX_PER_HOUR must be positive, got %d", c.OverrideMaxPerHour)
	}
	if c.RootRoleName == "" {
		return fmt.Errorf("ROOT_ROLE_NAME must not be empty")
	}
	return nil
}
