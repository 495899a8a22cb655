package di

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ConfigurationFromEnv.
const (
	EnvMode           = "DI_MODE"
	EnvRootPolicy     = "DI_ROOT_POLICY"
	EnvOverridePolicy = "DI_OVERRIDE_POLICY"
)

// ConfigurationFromEnv loads the given .env files (".env" by default)
// and builds a Configuration from the environment:
//
//	DI_MODE=production|development
//	DI_ROOT_POLICY=multiple|single
//	DI_OVERRIDE_POLICY=allow|forbid
//
// Missing .env files are ignored, and variables already set in the environment
// are not overridden by the files. Unset variables keep the zero Configuration values.
// The registries are added to the returned Configuration.
func ConfigurationFromEnv(envFiles []string, registries ...Registry) (Configuration, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Configuration{}, fmt.Errorf("could not load `%s`: %w", file, err)
		}
	}

	config := Configuration{Registries: registries}
	var err error

	if config.Mode, err = ParseRuntimeMode(os.Getenv(EnvMode)); err != nil {
		return Configuration{}, err
	}
	if config.RootPolicy, err = ParseRootPolicy(os.Getenv(EnvRootPolicy)); err != nil {
		return Configuration{}, err
	}
	if config.OverridePolicy, err = ParseOverridePolicy(os.Getenv(EnvOverridePolicy)); err != nil {
		return Configuration{}, err
	}

	return config, nil
}

// ParseRuntimeMode parses "production" or "development".
// An empty string is ProductionMode.
func ParseRuntimeMode(s string) (RuntimeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "production", "prod":
		return ProductionMode, nil
	case "development", "dev":
		return DevelopmentMode, nil
	default:
		return ProductionMode, fmt.Errorf("invalid %s `%s`, expected production or development", EnvMode, s)
	}
}

// ParseRootPolicy parses "multiple" or "single".
// An empty string is AllowMultipleRoots.
func ParseRootPolicy(s string) (RootPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multiple":
		return AllowMultipleRoots, nil
	case "single":
		return PreventMultipleRoots, nil
	default:
		return AllowMultipleRoots, fmt.Errorf("invalid %s `%s`, expected multiple or single", EnvRootPolicy, s)
	}
}

// ParseOverridePolicy parses "allow" or "forbid".
// An empty string is OverrideAllowed.
func ParseOverridePolicy(s string) (OverridePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return OverrideAllowed, nil
	case "forbid":
		return OverrideForbidden, nil
	default:
		return OverrideAllowed, fmt.Errorf("invalid %s `%s`, expected allow or forbid", EnvOverridePolicy, s)
	}
}
