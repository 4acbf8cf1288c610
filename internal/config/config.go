package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/carrental/internal/domain"
)

const MinSecretLen = 32

var DefaultPublicPaths = []string{
	"/",
	"/login",
	"/register",
	"/logout",
	"/api/v1/auth",
	"/static",
	"/assets",
	"/favicon.ico",
	"/health",
	"/metrics",
}

type Config struct {
	Env        string
	ListenAddr string
	LogLevel   string

	DatabaseURL string

	JWTSecret  []byte
	TokenTTL   time.Duration
	BcryptCost int

	CookieName   string
	CookieSecure bool

	RecheckActive bool
	PublicPaths   []string

	LoginRatePerMinute int
	LoginRateBurst     int

	CSRFEnabled bool

	// RegisterRoles are the roles a caller may choose when registering.
	// Empty allows every role.
	RegisterRoles []domain.Role

	KafkaBrokers []string
	KafkaTopic   string
}

func (c *Config) Production() bool { return c.Env == "production" }

// Load reads .env (when present) and the process environment. The result is
// validated; a missing or short JWT_SECRET is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	env := EnvDefault("APP_ENV", "development")
	cfg := &Config{
		Env:        env,
		ListenAddr: EnvDefault("LISTEN_ADDR", ":8080"),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:   EnvDurationDefault("TOKEN_TTL", 24*time.Hour),
		BcryptCost: EnvIntDefault("BCRYPT_COST", 12),

		CookieName:   EnvDefault("AUTH_COOKIE_NAME", "authToken"),
		CookieSecure: EnvBoolDefault("COOKIE_SECURE", env == "production"),

		RecheckActive: EnvBoolDefault("GATE_RECHECK_ACTIVE", true),
		PublicPaths:   CSV(os.Getenv("PUBLIC_PATHS")),

		LoginRatePerMinute: EnvIntDefault("LOGIN_RATE_PER_MINUTE", 20),
		LoginRateBurst:     EnvIntDefault("LOGIN_RATE_BURST", 10),

		CSRFEnabled: EnvBoolDefault("CSRF_ENABLED", true),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),
	}
	if len(cfg.PublicPaths) == 0 {
		cfg.PublicPaths = append([]string(nil), DefaultPublicPaths...)
	}

	roles, roleErr := parseRoles(os.Getenv("REGISTER_ALLOWED_ROLES"))
	cfg.RegisterRoles = roles

	if err := errors.Join(roleErr, cfg.Validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) == 0 {
		errs = append(errs, errors.New("missing required env JWT_SECRET"))
	} else if len(c.JWTSecret) < MinSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLen))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("missing required env DATABASE_URL"))
	}
	if c.BcryptCost < 10 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be >= 10, got %d", c.BcryptCost))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func parseRoles(raw string) ([]domain.Role, error) {
	var (
		roles []domain.Role
		errs  []error
	)
	for _, item := range CSV(raw) {
		r, ok := domain.ParseRole(item)
		if !ok {
			errs = append(errs, fmt.Errorf("REGISTER_ALLOWED_ROLES: unknown role %q", item))
			continue
		}
		roles = append(roles, r)
	}
	return roles, errors.Join(errs...)
}
