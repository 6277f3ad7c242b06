// Package config loads shimgen settings from defaults, an optional YAML file
// and SHIMGEN_ environment variables, in that order of precedence.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SHIMGEN_"

type Config struct {
	Log      LogConfig      `koanf:"log"`
	Generate GenerateConfig `koanf:"generate"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, console
}

type GenerateConfig struct {
	Manifest    string   `koanf:"manifest"`
	Dir         string   `koanf:"dir"`
	Output      string   `koanf:"output"`
	Shells      string   `koanf:"shells"` // output of shell types
	Tags        []string `koanf:"tags"`
	Concurrency int      `koanf:"concurrency"`
}

// Load reads the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "console")
	k.Set("generate.manifest", "shim.yaml")
	k.Set("generate.dir", ".")
	k.Set("generate.output", "shim_gen.go")
	k.Set("generate.shells", "shim_shells_gen.go")
	k.Set("generate.concurrency", 4)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, invalid(path, err)
		}
	}

	// SHIMGEN_GENERATE_OUTPUT -> generate.output
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil); err != nil {
		return nil, invalid(path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, invalid(path, err)
	}
	if cfg.Generate.Concurrency < 1 {
		cfg.Generate.Concurrency = 1
	}
	return &cfg, nil
}

func invalid(path string, err error) error {
	return errorc.With(
		errors.ErrInvalidConfig,
		errorc.String(errors.ErrorFieldPath, path),
		errorc.Error(errors.ErrorFieldCause, err),
	)
}
