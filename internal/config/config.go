// Package config loads planner server settings from a .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/transit-planner/internal/fares"
	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/internal/observability"
	"github.com/signalsfoundry/transit-planner/internal/status"
	"github.com/signalsfoundry/transit-planner/model"
)

// Config is the full server configuration.
type Config struct {
	GRPCAddr     string
	HTTPAddr     string
	TopologyPath string
	Location     *time.Location

	StatusURL     string
	StatusTTL     time.Duration
	StatusRefresh time.Duration

	FareURL       string
	FaresEnabled  bool
	FareCacheSize int
	FareCacheTTL  time.Duration
	Travelcard    model.Travelcard

	AppID  string
	AppKey string

	Logging logging.Config
	Tracing observability.TracingConfig
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		GRPCAddr:      ":50051",
		HTTPAddr:      ":8080",
		TopologyPath:  "configs/network.json",
		Location:      mustLoadLocation("Europe/London"),
		StatusURL:     status.DefaultBaseURL,
		StatusTTL:     status.DefaultTTL,
		StatusRefresh: time.Minute,
		FareURL:       fares.DefaultBaseURL,
		FaresEnabled:  true,
		FareCacheSize: fares.DefaultCacheSize,
		FareCacheTTL:  fares.DefaultCacheTTL,
		Travelcard:    model.TravelcardAdult,
		Logging:       logging.Config{Level: "info", Format: "json", AddSource: true},
	}
}

// Load reads the given .env files (".env" when none are named) into the
// environment without overriding variables already set, then builds the
// configuration. A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	setString(&cfg.GRPCAddr, "PLANNER_GRPC_ADDR")
	setString(&cfg.HTTPAddr, "PLANNER_HTTP_ADDR")
	setString(&cfg.TopologyPath, "PLANNER_TOPOLOGY")
	setString(&cfg.StatusURL, "PLANNER_STATUS_URL")
	setString(&cfg.FareURL, "PLANNER_FARE_URL")
	setString(&cfg.AppID, "TFL_APP_ID")
	setString(&cfg.AppKey, "TFL_APP_KEY")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("PLANNER_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PLANNER_TIMEZONE: %w", err))
		} else {
			cfg.Location = loc
		}
	}
	if v := os.Getenv("PLANNER_TRAVELCARD"); v != "" {
		tc, err := model.ParseTravelcard(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PLANNER_TRAVELCARD: %w", err))
		} else {
			cfg.Travelcard = tc
		}
	}

	errs = appendErr(errs, setDuration(&cfg.StatusTTL, "PLANNER_STATUS_TTL"))
	errs = appendErr(errs, setDuration(&cfg.StatusRefresh, "PLANNER_STATUS_REFRESH"))
	errs = appendErr(errs, setDuration(&cfg.FareCacheTTL, "PLANNER_FARE_CACHE_TTL"))
	errs = appendErr(errs, setInt(&cfg.FareCacheSize, "PLANNER_FARE_CACHE_SIZE"))
	errs = appendErr(errs, setBool(&cfg.FaresEnabled, "PLANNER_FARES_ENABLED"))

	cfg.Tracing = observability.TracingConfigFromEnv()

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", key, v)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return fmt.Errorf("%s: must be positive, got %d", key, n)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
