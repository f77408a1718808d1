// Package config loads the process configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// minSecretLength matches the token issuer's minimum.
const minSecretLength = 20

// Store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config is the explicit configuration handed to every component.
// Nothing reads the environment after Load returns.
type Config struct {
	Env          string `mapstructure:"APP_ENV" validate:"oneof=development test production"`
	Port         int    `mapstructure:"PORT" validate:"gt=0,lte=65535"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	// TrustedProxiesList is a comma-separated list of proxy IPs or CIDRs whose
	// X-Forwarded-For headers are believed. Empty trusts none.
	TrustedProxiesList string `mapstructure:"TRUSTED_PROXIES"`

	// JWTSecret signs local session tokens. It is unused with the managed identity provider.
	JWTSecret        string `mapstructure:"JWT_SECRET"`
	CookieName       string `mapstructure:"COOKIE_NAME" validate:"required"`
	TokenExpiresDays int    `mapstructure:"TOKEN_EXPIRES_DAYS" validate:"gt=0"`

	ResetTokenExpiresMinutes int  `mapstructure:"RESET_TOKEN_EXPIRES_MINUTES" validate:"gt=0"`
	ExposeResetURL           bool `mapstructure:"EXPOSE_RESET_URL"`

	StoreDriver string `mapstructure:"STORE_DRIVER" validate:"oneof=file sqlite postgres mysql"`
	UsersFile   string `mapstructure:"USERS_FILE" validate:"required_if=StoreDriver file"`

	DBDSN          string `mapstructure:"DB_DSN"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBInstanceName string `mapstructure:"INSTANCE_CONNECTION_NAME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`

	SupabaseURL     string `mapstructure:"SUPABASE_URL" validate:"omitempty,url"`
	SupabaseAnonKey string `mapstructure:"SUPABASE_ANON_KEY"`

	AuthRateLimitPerMinute int `mapstructure:"AUTH_RATE_LIMIT_PER_MINUTE" validate:"gte=0"`
}

// keys lists every configuration key so that AutomaticEnv values reach Unmarshal.
var keys = func() []string {
	t := reflect.TypeOf(Config{})
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		out = append(out, t.Field(i).Tag.Get("mapstructure"))
	}
	return out
}()

func setDefaults(v *viper.Viper) {
	for _, k := range keys {
		v.SetDefault(k, "")
	}
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", 4000)
	v.SetDefault("CLIENT_ORIGIN", "http://localhost:3000")
	v.SetDefault("COOKIE_NAME", "wandertrails_token")
	v.SetDefault("TOKEN_EXPIRES_DAYS", 7)
	v.SetDefault("USERS_FILE", "./data/users.json")
	v.SetDefault("RESET_TOKEN_EXPIRES_MINUTES", 30)
	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AUTH_RATE_LIMIT_PER_MINUTE", 20)
}

// Load reads defaults, then the optional dotenv files (first one found wins),
// then the process environment, and validates the result.
func Load(envFiles ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("failed to stat %s: %w", f, err)
		}
		v.SetConfigFile(f)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", f, err)
		}
		break
	}
	v.AutomaticEnv()
	// NODE_ENV is accepted for deployments configured for the previous server.
	if err := v.BindEnv("APP_ENV", "APP_ENV", "NODE_ENV"); err != nil {
		return Config{}, fmt.Errorf("failed to bind APP_ENV: %w", err)
	}

	// EXPOSE_RESET_URL defaults to "not production", which depends on APP_ENV.
	if !v.IsSet("EXPOSE_RESET_URL") || v.GetString("EXPOSE_RESET_URL") == "" {
		v.Set("EXPOSE_RESET_URL", v.GetString("APP_ENV") != EnvProduction)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every rule and reports all failures at once.
func (c Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	validate.RegisterStructValidation(validateSecret, Config{})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid environment: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), describe(fe)))
	}
	return fmt.Errorf("invalid environment:\n%s", strings.Join(msgs, "\n"))
}

// validateSecret requires a strong JWT_SECRET only when tokens are issued locally.
func validateSecret(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.UsesManagedIdentity() {
		return
	}
	if len(c.JWTSecret) < minSecretLength {
		sl.ReportError(c.JWTSecret, "JWT_SECRET", "JWTSecret", "min", strconv.Itoa(minSecretLength))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "url":
		return "must be a URL"
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// AllowedOrigins returns the CLIENT_ORIGIN list, trimmed and without trailing slashes.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.ClientOrigin, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// TrustedProxies returns the TRUSTED_PROXIES list, or nil when no proxy is trusted.
func (c Config) TrustedProxies() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxiesList, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResetURLBase is the origin that reset links point at.
func (c Config) ResetURLBase() string {
	if origins := c.AllowedOrigins(); len(origins) > 0 {
		return origins[0]
	}
	return ""
}

// TokenTTL is the session token lifetime.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpiresDays) * 24 * time.Hour
}

// ResetTokenTTL is the reset secret lifetime.
func (c Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenExpiresMinutes) * time.Minute
}

// UsesManagedIdentity reports whether auth is delegated to the external identity provider.
func (c Config) UsesManagedIdentity() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}
