// Package config reads a hybridsearch.TwoTierConfig from environment
// variables. It is the only place in this module that reads the
// environment — the orchestrator and its subpackages never call
// os.Getenv themselves.
//
// Adapted from the env-driven ApplyDefaults/Validate split of
// kailas-cloud-vecdex's internal/config package (itself YAML-file driven;
// here there is no file, only env vars, per spec.md §6's
// "environment-overridable" requirement).
package config

import (
	"os"
	"strconv"

	"github.com/hupe1980/hybridsearch"
)

const (
	envQualityWeight    = "HYBRIDSEARCH_QUALITY_WEIGHT"
	envRRFK             = "HYBRIDSEARCH_RRF_K"
	envFastOnly         = "HYBRIDSEARCH_FAST_ONLY"
	envQualityTimeoutMS = "HYBRIDSEARCH_QUALITY_TIMEOUT_MS"
)

// Load reads HYBRIDSEARCH_QUALITY_WEIGHT, HYBRIDSEARCH_RRF_K,
// HYBRIDSEARCH_FAST_ONLY, and HYBRIDSEARCH_QUALITY_TIMEOUT_MS, falling
// back to hybridsearch.DefaultTwoTierConfig for any variable that is
// unset or out of range. Each out-of-range value produces one warning
// string rather than an error (spec.md §6: "falls back to the default
// and is reported on the error channel").
func Load() (hybridsearch.TwoTierConfig, []string, error) {
	cfg := hybridsearch.DefaultTwoTierConfig()
	var warnings []string

	if v, ok := os.LookupEnv(envQualityWeight); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			warnings = append(warnings, envQualityWeight+": out of range [0,1], using default")
		} else {
			cfg.QualityWeight = f
		}
	}

	if v, ok := os.LookupEnv(envRRFK); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			warnings = append(warnings, envRRFK+": must be > 0, using default")
		} else {
			cfg.RRFK = f
		}
	}

	if v, ok := os.LookupEnv(envFastOnly); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			warnings = append(warnings, envFastOnly+": not a bool, using default")
		} else {
			cfg.FastOnly = b
		}
	}

	if v, ok := os.LookupEnv(envQualityTimeoutMS); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			warnings = append(warnings, envQualityTimeoutMS+": must be >= 0, using default")
		} else {
			cfg.QualityTimeoutMS = n
		}
	}

	return cfg, warnings, nil
}
