// Package config loads and validates the transpiler configuration from a
// TOML file: numeric width, string ownership policy, optimizer pass toggles,
// and the fallible-wrapping mode.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"

	"pyrus/codegen"
	"pyrus/optimize"
	"pyrus/types"
)

// Config is the validated transpiler configuration.
type Config struct {
	// The numeric width policy for mapping unbounded integers.
	IntWidth types.IntWidth

	// The text ownership policy.
	Strings types.StringStrategy

	// Whether the optimizer runs at all.
	Optimize bool

	// The per-pass optimizer toggles.
	Passes optimize.Options

	// The fallible-function wrapping mode.
	Fallible codegen.WrapMode
}

// Default returns the configuration used when no file is given: 32-bit
// integers, always-owned strings, all optimizer passes on, mandatory
// wrapping.
func Default() *Config {
	return &Config{
		IntWidth: types.Width32,
		Strings:  types.StringAlwaysOwned,
		Optimize: true,
		Passes:   optimize.DefaultOptions(),
		Fallible: codegen.WrapMandatory,
	}
}

// Mapper builds the type mapper configured by this config.
func (c *Config) Mapper() *types.Mapper {
	return &types.Mapper{IntWidth: c.IntWidth, Strings: c.Strings}
}

// -----------------------------------------------------------------------------

// tomlConfig represents the configuration as it is encoded in TOML.
type tomlConfig struct {
	Types struct {
		IntWidth int    `toml:"int-width"`
		Strings  string `toml:"strings"`
	} `toml:"types"`

	Optimize struct {
		Enabled         *bool `toml:"enabled"`
		ConstantFolding *bool `toml:"constant-folding"`
		DeadCode        *bool `toml:"dead-code"`
		CSE             *bool `toml:"cse"`
	} `toml:"optimize"`

	Codegen struct {
		Fallible string `toml:"fallible"`
	} `toml:"codegen"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file at `%s`: %w", path, err)
	}

	return Parse(buff)
}

// Parse validates configuration text.  Omitted keys keep their defaults.
func Parse(data []byte) (*Config, error) {
	tomlCfg := &tomlConfig{}
	if err := toml.Unmarshal(data, tomlCfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg := Default()

	switch tomlCfg.Types.IntWidth {
	case 0:
	case 32:
		cfg.IntWidth = types.Width32
	case 64:
		cfg.IntWidth = types.Width64
	default:
		return nil, fmt.Errorf("invalid int-width `%d`: must be 32 or 64", tomlCfg.Types.IntWidth)
	}

	switch tomlCfg.Types.Strings {
	case "":
	case "owned":
		cfg.Strings = types.StringAlwaysOwned
	case "borrow":
		cfg.Strings = types.StringBorrowWhenPossible
	default:
		return nil, fmt.Errorf("invalid strings policy `%s`: must be `owned` or `borrow`", tomlCfg.Types.Strings)
	}

	if tomlCfg.Optimize.Enabled != nil {
		cfg.Optimize = *tomlCfg.Optimize.Enabled
	}

	if tomlCfg.Optimize.ConstantFolding != nil {
		cfg.Passes.ConstantFolding = *tomlCfg.Optimize.ConstantFolding
	}

	if tomlCfg.Optimize.DeadCode != nil {
		cfg.Passes.DeadCode = *tomlCfg.Optimize.DeadCode
	}

	if tomlCfg.Optimize.CSE != nil {
		cfg.Passes.CSE = *tomlCfg.Optimize.CSE
	}

	switch tomlCfg.Codegen.Fallible {
	case "":
	case "mandatory":
		cfg.Fallible = codegen.WrapMandatory
	case "best-effort":
		cfg.Fallible = codegen.WrapBestEffort
	default:
		return nil, fmt.Errorf("invalid fallible mode `%s`: must be `mandatory` or `best-effort`",
			tomlCfg.Codegen.Fallible)
	}

	return cfg, nil
}
