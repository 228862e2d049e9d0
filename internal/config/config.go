package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/intake/intake/internal/flow"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string   `mapstructure:"REDIS_URL"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Session cache.
	SessionTTLMinutes int `mapstructure:"SESSION_TTL_MINUTES"`

	// Scoring and branching thresholds. Zero means "use the engine default";
	// these exist so deployments can recalibrate without a rebuild.
	RiskModerateMin     float64 `mapstructure:"RISK_MODERATE_MIN"`
	RiskHighMin         float64 `mapstructure:"RISK_HIGH_MIN"`
	PainThreshold       float64 `mapstructure:"PAIN_THRESHOLD"`
	MoodThreshold       float64 `mapstructure:"MOOD_THRESHOLD"`
	FamilyHistoryMinAge float64 `mapstructure:"FAMILY_HISTORY_MIN_AGE"`
	FraudPairPenalty    float64 `mapstructure:"FRAUD_PAIR_PENALTY"`
	MinResponseMillis   int     `mapstructure:"MIN_RESPONSE_MILLIS"`
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
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SESSION_TTL_MINUTES", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SESSION_TTL_MINUTES")
	v.BindEnv("RISK_MODERATE_MIN")
	v.BindEnv("RISK_HIGH_MIN")
	v.BindEnv("PAIN_THRESHOLD")
	v.BindEnv("MOOD_THRESHOLD")
	v.BindEnv("FAMILY_HISTORY_MIN_AGE")
	v.BindEnv("FRAUD_PAIR_PENALTY")
	v.BindEnv("MIN_RESPONSE_MILLIS")

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
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; all requests are treated as admin.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionTTL returns the snapshot cache lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// FlowConfig builds the engine calibration, applying any environment
// overrides on top of the engine defaults.
func (c *Config) FlowConfig() flow.Config {
	fc := flow.DefaultConfig()
	if c.RiskModerateMin > 0 {
		fc.RiskModerateMin = c.RiskModerateMin
	}
	if c.RiskHighMin > 0 {
		fc.RiskHighMin = c.RiskHighMin
	}
	if c.PainThreshold > 0 {
		fc.PainThreshold = c.PainThreshold
	}
	if c.MoodThreshold > 0 {
		fc.MoodThreshold = c.MoodThreshold
	}
	if c.FamilyHistoryMinAge > 0 {
		fc.FamilyHistoryMinAge = c.FamilyHistoryMinAge
	}
	if c.FraudPairPenalty > 0 {
		fc.PairPenalty = c.FraudPairPenalty
	}
	if c.MinResponseMillis > 0 {
		fc.MinResponseTime = time.Duration(c.MinResponseMillis) * time.Millisecond
	}
	return fc
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be configured: tokens are verified with HS256 keyed by
// JWT_SECRET, and AUTH_ISSUER only constrains the issuer claim, so an empty
// secret would let anyone mint valid tokens.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV=%q; refusing to start without authentication", c.Env)
	}
	if c.RiskHighMin > 0 && c.RiskModerateMin > 0 && c.RiskHighMin < c.RiskModerateMin {
		return fmt.Errorf("RISK_HIGH_MIN (%g) must not be below RISK_MODERATE_MIN (%g)",
			c.RiskHighMin, c.RiskModerateMin)
	}
	return nil
}
