package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
		AdminEmail      string
		AdminPassword   string
	}
	Storage struct {
		Bucket            string
		KeyPrefix         string
		Region            string
		Endpoint          string
		PresignTTLMinutes int
	}
	AWS struct {
		Profile string
	}
	Report struct {
		Timezone string
	}
}

// Load reads configuration from environment variables and optional config files.
// Variables from a .env file in the working directory never override the environment.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file

	v := viper.New()
	v.SetEnvPrefix("MOI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/moi.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 12*60)
	v.SetDefault("auth.adminemail", "admin@money-tracker.com")
	v.SetDefault("auth.adminpassword", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "moi-note")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.presignttlminutes", 15)
	v.SetDefault("aws.profile", "")
	v.SetDefault("report.timezone", "UTC")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth jwt secret is required"))
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("auth token ttl must be positive"))
	}
	if strings.TrimSpace(c.Auth.AdminEmail) == "" {
		errs = append(errs, errors.New("auth admin email is required"))
	}
	if _, err := c.ReportLocation(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReportLocation resolves the time zone used for dates in the PDF report.
func (c Config) ReportLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("report timezone %q: %w", c.Report.Timezone, err)
	}
	return loc, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c Config) PresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignTTLMinutes) * time.Minute
}
