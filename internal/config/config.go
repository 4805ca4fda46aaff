// Package config assembles the runtime configuration of the shortener from
// defaults, an optional JSON file, environment variables (and .env) and
// command-line flags, in increasing order of priority.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/patric-chuzhbe/adshrt/internal/models"
)

// Config holds every tunable of the service.
type Config struct {
	RunAddr                  string         `json:"server_address" env:"SERVER_ADDRESS" validate:"hostname_port"`
	ShortURLBase             string         `json:"base_url" env:"BASE_URL" validate:"url"`
	LogLevel                 string         `json:"log_level" env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName               string         `json:"file_storage_path" env:"FILE_STORAGE_PATH" validate:"storagepath"`
	DatabaseDSN              string         `json:"database_dsn" env:"DATABASE_DSN"`
	DBConnectionTimeout      time.Duration  `json:"-" env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	MigrationsDir            string         `json:"migrations_dir" env:"MIGRATIONS_DIR"`
	SecretKey                string         `json:"secret_key" env:"SECRET_KEY" validate:"required"`
	AuthCookieName           string         `json:"auth_cookie_name" env:"AUTH_COOKIE_NAME" validate:"required"`
	SessionTTL               time.Duration  `json:"-" env:"SESSION_TTL" validate:"gt=0"`
	AdChain                  models.AdChain `json:"ad_chain" env:"AD_CHAIN" validate:"adchain"`
	CPCRate                  float64        `json:"cpc_rate" env:"CPC_RATE" validate:"gte=0"`
	CPMRate                  float64        `json:"cpm_rate" env:"CPM_RATE" validate:"gte=0"`
	TrustedSubnet            string         `json:"trusted_subnet" env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	RequireLoginForRedirects bool           `json:"require_login_for_redirects" env:"REQUIRE_LOGIN_FOR_REDIRECTS"`
	ConfigFile               string         `json:"-" env:"CONFIG"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	ShortURLBase:        "http://localhost:8080",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	SecretKey:           "fallback-secret",
	AuthCookieName:      "session",
	SessionTTL:          24 * time.Hour,
	AdChain:             models.AdChainDouble,
	CPCRate:             0.5,
	CPMRate:             5.0,
}

// InitOption tweaks how New gathers its sources.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips os.Args; tests use it to stay independent of the go test flags.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds and validates a Config. Priority: flags > env > JSON file > defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var fromFlags *flag.FlagSet
	var flagValues Config
	if !options.disableFlagsParsing {
		fromFlags = newFlagSet(&flagValues)
		if err := fromFlags.Parse(os.Args[1:]); err != nil {
			return nil, err
		}
	}

	configFile := os.Getenv("CONFIG")
	if fromFlags != nil && isFlagSet(fromFlags, "c") {
		configFile = flagValues.ConfigFile
	}
	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, err
	}

	if fromFlags != nil {
		applyFlags(values, &flagValues, fromFlags)
	}

	values.ShortURLBase = strings.TrimRight(values.ShortURLBase, "/")

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func newFlagSet(target *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	fs.StringVar(&target.RunAddr, "a", "", "address and port to run server")
	fs.StringVar(&target.ShortURLBase, "b", "", "base address of the resulting shortened URL")
	fs.StringVar(&target.LogLevel, "l", "", "logger level")
	fs.StringVar(&target.DBFileName, "f", "", "JSON file name with database")
	fs.StringVar(&target.DatabaseDSN, "d", "", "A string with the database connection details")
	fs.StringVar(&target.SecretKey, "k", "", "secret key used to sign session cookies")
	fs.StringVar(&target.TrustedSubnet, "t", "", "CIDR allowed to query the internal stats")
	fs.StringVar(&target.ConfigFile, "c", "", "path to a JSON configuration file")
	fs.Func("chain", "ad chain: direct, single or double", func(s string) error {
		target.AdChain = models.AdChain(s)
		return nil
	})

	return fs
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})

	return found
}

func applyFlags(values, flagValues *Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			values.RunAddr = flagValues.RunAddr
		case "b":
			values.ShortURLBase = flagValues.ShortURLBase
		case "l":
			values.LogLevel = flagValues.LogLevel
		case "f":
			values.DBFileName = flagValues.DBFileName
		case "d":
			values.DatabaseDSN = flagValues.DatabaseDSN
		case "k":
			values.SecretKey = flagValues.SecretKey
		case "t":
			values.TrustedSubnet = flagValues.TrustedSubnet
		case "chain":
			values.AdChain = flagValues.AdChain
		}
	})
}

func (c *Config) loadJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	return nil
}

func validateStoragePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":  true,
		"info":   true,
		"warn":   true,
		"error":  true,
		"dpanic": true,
		"panic":  true,
		"fatal":  true,
	}

	return allowedLogLevels[value]
}

func validateAdChain(fieldLevel validator.FieldLevel) bool {
	switch models.AdChain(fieldLevel.Field().String()) {
	case models.AdChainDirect, models.AdChainSingle, models.AdChainDouble:
		return true
	}

	return false
}

func (c *Config) validate() error {
	validate := validator.New()

	for tag, fn := range map[string]validator.Func{
		"loglevel":    validateLogLevel,
		"storagepath": validateStoragePath,
		"adchain":     validateAdChain,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return validate.Struct(c)
}
