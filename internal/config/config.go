// Package config decodes and validates the process configuration file
// described in spec.md §6, adapted from the teacher's ProgramConfig
// pattern: a struct with defaults set before parsing, overridden by a JSON
// file and then by environment variables, and checked against a compiled
// JSON Schema before anything else starts.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/myiotd/myiot-core/internal/errs"
	"github.com/myiotd/myiot-core/pkg/log"
)

// ServiceConfig is one entry of the open-ended services.<id> map: a tagged
// record selecting one adapter variant plus its options, per spec.md §6.
// Core code never interprets Options or Secrets further; only the wiring
// layer (out of scope for this module) does.
type ServiceConfig struct {
	Kind    string                 `json:"kind"`
	Options map[string]interface{} `json:"options,omitempty"`
	Secrets map[string]string      `json:"secrets,omitempty"`
}

// DashboardConfig holds the landing-view sensor picks, keyed loosely since
// the set of "*_sensor" keys is open-ended per adapter.
type DashboardConfig map[string]string

// Config is the top-level decoded configuration file.
type Config struct {
	DB       string                    `json:"db"`
	HTTPPort int                       `json:"http_port"`
	Services map[string]ServiceConfig  `json:"services,omitempty"`
	Dashboard DashboardConfig          `json:"dashboard,omitempty"`
}

// Defaults mirrors the teacher's package-level Keys: a ready-to-use value
// callers can load over, so a missing config file is not fatal for ad hoc
// or test runs.
var Defaults = Config{
	DB:       "my-iot.sqlite3",
	HTTPPort: 8080,
}

// Load reads, env-overrides, validates, and decodes the configuration file
// at path into a copy of Defaults. A missing file is not an error; env
// overrides and defaults still apply. Any schema violation or malformed
// JSON is wrapped in errs.ErrConfig and is meant to be fatal at startup.
func Load(path string) (Config, error) {
	cfg := Defaults

	// Best-effort local-dev overlay; a missing .env is not an error.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: reading %s: %v", errs.ErrConfig, path, err)
		}
		log.Warnf("config: %s not found, using defaults", path)
	} else {
		if err := Validate(raw); err != nil {
			return cfg, fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("%w: decoding %s: %v", errs.ErrConfig, path, err)
		}
	}

	if db := os.Getenv("MYIOT_DB"); db != "" {
		cfg.DB = db
	}
	if settings := os.Getenv("MYIOT_SETTINGS"); settings != "" && settings != path {
		return Load(settings)
	}

	return cfg, nil
}
