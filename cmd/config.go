package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"go.k6.io/typedmem/cmd/state"
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/lib/types"
)

// Config is the configuration of the run and stress commands. Every field
// is nullable so that a layer only overrides what it actually sets.
type Config struct {
	MaxByteLength      null.Int           `json:"maxByteLength" envconfig:"MAX_BYTE_LENGTH"`
	DefaultWaitTimeout types.NullDuration `json:"defaultWaitTimeout" envconfig:"DEFAULT_WAIT_TIMEOUT"`
	Agents             null.Int           `json:"agents" envconfig:"AGENTS"`
	Iterations         null.Int           `json:"iterations" envconfig:"ITERATIONS"`
	LogLevel           null.String        `json:"logLevel" envconfig:"LOG_LEVEL"`
	LogFormat          null.String        `json:"logFormat" envconfig:"LOG_FORMAT"`
	NoColor            null.Bool          `json:"noColor" envconfig:"NO_COLOR"`
}

// fileConfig is the YAML form of Config.
type fileConfig struct {
	MaxByteLength      *int64             `yaml:"maxByteLength"`
	DefaultWaitTimeout types.NullDuration `yaml:"defaultWaitTimeout"`
	Agents             *int64             `yaml:"agents"`
	Iterations         *int64             `yaml:"iterations"`
	LogLevel           *string            `yaml:"logLevel"`
	LogFormat          *string            `yaml:"logFormat"`
	NoColor            *bool              `yaml:"noColor"`
}

func (fc fileConfig) config() Config {
	return Config{
		MaxByteLength:      null.IntFromPtr(fc.MaxByteLength),
		DefaultWaitTimeout: fc.DefaultWaitTimeout,
		Agents:             null.IntFromPtr(fc.Agents),
		Iterations:         null.IntFromPtr(fc.Iterations),
		LogLevel:           null.StringFromPtr(fc.LogLevel),
		LogFormat:          null.StringFromPtr(fc.LogFormat),
		NoColor:            null.BoolFromPtr(fc.NoColor),
	}
}

// Apply returns c with every valid field of cfg applied on top.
func (c Config) Apply(cfg Config) Config {
	if cfg.MaxByteLength.Valid {
		c.MaxByteLength = cfg.MaxByteLength
	}
	if cfg.DefaultWaitTimeout.Valid {
		c.DefaultWaitTimeout = cfg.DefaultWaitTimeout
	}
	if cfg.Agents.Valid {
		c.Agents = cfg.Agents
	}
	if cfg.Iterations.Valid {
		c.Iterations = cfg.Iterations
	}
	if cfg.LogLevel.Valid {
		c.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat.Valid {
		c.LogFormat = cfg.LogFormat
	}
	if cfg.NoColor.Valid {
		c.NoColor = cfg.NoColor
	}
	return c
}

// Validate checks the consolidated values.
func (c Config) Validate() error {
	var errs []error
	if c.MaxByteLength.Int64 < 0 {
		errs = append(errs, fmt.Errorf("maxByteLength must not be negative, got %d", c.MaxByteLength.Int64))
	}
	if c.Agents.Int64 < 1 {
		errs = append(errs, fmt.Errorf("agents must be at least 1, got %d", c.Agents.Int64))
	}
	if c.Iterations.Int64 < 0 {
		errs = append(errs, fmt.Errorf("iterations must not be negative, got %d", c.Iterations.Int64))
	}
	if c.DefaultWaitTimeout.Valid && c.DefaultWaitTimeout.TimeDuration() < 0 {
		errs = append(errs, fmt.Errorf("defaultWaitTimeout must not be negative, got %s", c.DefaultWaitTimeout.Duration))
	}
	return errors.Join(errs...)
}

// defaultConfig returns the values used when no layer sets a field.
func defaultConfig() Config {
	return Config{
		MaxByteLength: null.NewInt(math.MaxInt32, false),
		Agents:        null.NewInt(4, false),
		Iterations:    null.NewInt(10000, false),
		LogLevel:      null.NewString("info", false),
	}
}

// readDiskConfig reads the YAML configuration file. A missing file is only
// an error when the path was chosen explicitly.
func readDiskConfig(gs *state.GlobalState) (Config, error) {
	path := gs.Flags.ConfigFilePath
	data, err := afero.ReadFile(gs.FS, path)
	if errors.Is(err, fs.ErrNotExist) && path == gs.DefaultFlags.ConfigFilePath {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("couldn't load the configuration from %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var fc fileConfig
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("couldn't parse the configuration from %q: %w", path, err)
	}
	return fc.config(), nil
}

// readEnvConfig reads the TYPEDMEM_ environment variables.
func readEnvConfig(env map[string]string) (Config, error) {
	var conf Config
	err := envconfig.Process("typedmem", &conf, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	return conf, err
}

// getConfig reads the command-specific flags that override configuration.
// Commands only define the flags that apply to them.
func getConfig(flags *pflag.FlagSet) Config {
	var conf Config
	if flags.Lookup("agents") != nil {
		conf.Agents = getNullInt64(flags, "agents")
	}
	if flags.Lookup("iterations") != nil {
		conf.Iterations = getNullInt64(flags, "iterations")
	}
	if flags.Lookup("wait-timeout") != nil {
		conf.DefaultWaitTimeout = getNullDuration(flags, "wait-timeout")
	}
	if flags.Lookup("max-byte-length") != nil {
		conf.MaxByteLength = getNullInt64(flags, "max-byte-length")
	}
	return conf
}

// getConsolidatedConfig merges the layers, from lowest to highest priority:
// defaults, the config file, the environment and the CLI flags.
func getConsolidatedConfig(gs *state.GlobalState, cliConf Config) (Config, error) {
	fileConf, err := readDiskConfig(gs)
	if err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	envConf, err := readEnvConfig(gs.Env)
	if err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	conf := defaultConfig().Apply(fileConf).Apply(envConf).Apply(cliConf)
	if err := conf.Validate(); err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	return conf, nil
}
