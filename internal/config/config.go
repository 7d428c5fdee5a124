// Package config loads goalctl settings.
//
// Sources are applied in order: defaults, the YAML file, a .env file in the
// working directory, then GOALCTL_* environment variables. The merged result
// is checked against an embedded CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// Environment variables read by Load.
const (
	EnvDatabase     = "GOALCTL_DB"
	EnvTimezone     = "GOALCTL_TIMEZONE"
	EnvHorizonDays  = "GOALCTL_HORIZON_DAYS"
	EnvGenerateCron = "GOALCTL_GENERATE_CRON"
)

// Defaults.
const (
	DefaultDatabase     = "goalctl.db"
	DefaultTimezone     = "Local"
	DefaultHorizonDays  = 90
	DefaultGenerateCron = "@hourly"
)

// Config holds goalctl settings.
type Config struct {
	Database     string `yaml:"database" json:"database"`
	Timezone     string `yaml:"timezone" json:"timezone"`
	HorizonDays  int    `yaml:"horizon_days" json:"horizon_days"`
	GenerateCron string `yaml:"generate_cron" json:"generate_cron"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:     DefaultDatabase,
		Timezone:     DefaultTimezone,
		HorizonDays:  DefaultHorizonDays,
		GenerateCron: DefaultGenerateCron,
	}
}

// Load reads the configuration. An empty path skips the YAML file; a
// missing .env is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		cfg.Database = v
	}
	if v, ok := lookup(EnvTimezone); ok && v != "" {
		cfg.Timezone = v
	}
	if v, ok := lookup(EnvHorizonDays); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvHorizonDays, v)
		}
		cfg.HorizonDays = n
	}
	if v, ok := lookup(EnvGenerateCron); ok && v != "" {
		cfg.GenerateCron = v
	}
	return nil
}

// Normalize trims string fields and fills empty ones with defaults. A zero
// horizon means the default; negative values are left for Validate.
func (c *Config) Normalize() {
	d := Default()
	c.Database = strings.TrimSpace(c.Database)
	c.Timezone = strings.TrimSpace(c.Timezone)
	c.GenerateCron = strings.TrimSpace(c.GenerateCron)
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.HorizonDays == 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.GenerateCron == "" {
		c.GenerateCron = d.GenerateCron
	}
}

// Validate checks c against the schema, then checks that the timezone and
// cron spec parse.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", formatCUEError(err))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.GenerateCron); err != nil {
		return fmt.Errorf("invalid config: generate_cron %q: %w", c.GenerateCron, err)
	}
	return nil
}

// Location returns the viewer time zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Horizon returns the routine generation horizon.
func (c Config) Horizon() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

func formatCUEError(err error) string {
	errs := errors.Errors(err)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}
