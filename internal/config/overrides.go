package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (PONZI_NETWORK, ...).
const EnvPrefix = "PONZI"

// NewViper returns a viper instance that resolves config keys from PONZI_*
// environment variables. Callers bind flags onto it with BindPFlag.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overwriting variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyOverrides copies every key v has a value for (env or changed flag)
// onto cfg. The file on disk is not touched.
func ApplyOverrides(cfg *Config, v *viper.Viper) error {
	for _, key := range Keys {
		if !v.IsSet(key) {
			continue
		}
		if err := cfg.Set(key, v.GetString(key)); err != nil {
			return fmt.Errorf("override %s: %w", key, err)
		}
	}
	return nil
}
