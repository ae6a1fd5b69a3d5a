// Package config provides unified configuration loading for thoughtseed.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/thoughtseed/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all thoughtseed configuration settings.
type Config struct {
	// Features describes how each thoughtseed feature is sampled, in order.
	Features FeatureConfig `json:"features" yaml:"features"`

	// Network contains population size and random source settings.
	Network NetworkConfig `json:"network" yaml:"network"`

	// Pools contains activation and thought pool settings.
	Pools PoolConfig `json:"pools" yaml:"pools"`

	// Analytics contains graph analytics settings.
	Analytics AnalyticsConfig `json:"analytics" yaml:"analytics"`

	// Persistence selects where network and analytics snapshots are kept.
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// NetworkConfig configures the thoughtseed population.
type NetworkConfig struct {
	// NumThoughtseeds is the number of thoughtseeds to generate.
	NumThoughtseeds int `json:"num_thoughtseeds" yaml:"num_thoughtseeds"`

	// MaxThoughtseeds is the largest population generate will build.
	MaxThoughtseeds int `json:"max_thoughtseeds" yaml:"max_thoughtseeds"`

	// GlobalEnergyValue is the energy budget recorded alongside each network.
	GlobalEnergyValue float64 `json:"global_energy_value" yaml:"global_energy_value"`

	// RandomSeed seeds the random source. Zero seeds from the clock.
	RandomSeed uint64 `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`
}

// ErrTooManyThoughtseeds is returned when a population exceeds max_thoughtseeds.
var ErrTooManyThoughtseeds = errors.New("too many thoughtseeds")

// CheckCount reports whether a population of n seeds may be built.
func (nc NetworkConfig) CheckCount(n int) error {
	if n < 0 {
		return fmt.Errorf("num_thoughtseeds must be non-negative, got %d", n)
	}
	if n > nc.MaxThoughtseeds {
		return fmt.Errorf("%w: %d exceeds max_thoughtseeds %d", ErrTooManyThoughtseeds, n, nc.MaxThoughtseeds)
	}
	return nil
}

// PoolConfig configures sprouting and thought pools.
type PoolConfig struct {
	// Capacity is the maximum number of thoughtsprouts per pool. Default: 7.
	Capacity int `json:"capacity" yaml:"capacity"`

	// ActivationThreshold is the sigmoid(energy) level a thoughtseed must exceed
	// to sprout. Default: 0.8.
	ActivationThreshold float64 `json:"activation_threshold" yaml:"activation_threshold"`

	// SproutEnergyChange is the energy bump applied when a thoughtseed sprouts.
	// Default: 0.1.
	SproutEnergyChange float64 `json:"sprout_energy_change" yaml:"sprout_energy_change"`
}

// AnalyticsConfig configures graph analytics.
type AnalyticsConfig struct {
	// Algorithm is the community detection algorithm: "louvain" or "modularity".
	Algorithm string `json:"algorithm" yaml:"algorithm"`

	// Resolution is the modularity resolution for community detection.
	// Zero selects the algorithm's default.
	Resolution float64 `json:"resolution,omitempty" yaml:"resolution,omitempty"`

	// Damping is the PageRank damping factor. Default: 0.85.
	Damping float64 `json:"damping" yaml:"damping"`

	// LargeCommunitySize is the smallest community that gets described. Default: 3.
	LargeCommunitySize int `json:"large_community_size" yaml:"large_community_size"`
}

// PersistenceConfig configures snapshot storage.
type PersistenceConfig struct {
	// Backend is "file" (gzip snapshot files) or "sqlite".
	Backend string `json:"backend" yaml:"backend"`

	// Path is the snapshot file or database path. Relative paths are resolved
	// against the project root.
	Path string `json:"path" yaml:"path"`

	// Keep is the number of networks the sqlite backend retains after each
	// generate. Zero keeps every network. Default: 5.
	Keep int `json:"keep" yaml:"keep"`
}

// LoggingConfig configures thoughtseed's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .thoughtseed/decisions.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Persistence backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Community detection algorithms.
const (
	AlgorithmLouvain    = "louvain"
	AlgorithmModularity = "modularity"
)

// DirName is the per-project working directory.
const DirName = ".thoughtseed"

// Default returns a Config with sensible defaults, including a complete
// feature set so a fresh install can generate a network without a config file.
func Default() *Config {
	return &Config{
		Features: DefaultFeatures(),
		Network: NetworkConfig{
			NumThoughtseeds:   1000,
			MaxThoughtseeds:   constants.DefaultMaxThoughtseeds,
			GlobalEnergyValue: 1.0,
		},
		Pools: PoolConfig{
			Capacity:            constants.DefaultPoolCapacity,
			ActivationThreshold: constants.DefaultActivationThreshold,
			SproutEnergyChange:  constants.DefaultSproutEnergyChange,
		},
		Analytics: AnalyticsConfig{
			Algorithm:          AlgorithmLouvain,
			Damping:            constants.DefaultPageRankDamping,
			LargeCommunitySize: constants.LargeCommunitySize,
		},
		Persistence: PersistenceConfig{
			Backend: BackendFile,
			Path:    filepath.Join(DirName, "thoughtseed_network.snap"),
			Keep:    5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.thoughtseed/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, DirName, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Feature distributions are resolved here; an unknown distribution kind is a
// fatal *ConfigurationError.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document on top of the defaults. A document that sets
// features replaces the default feature set entirely.
func Parse(data []byte) (*Config, error) {
	config := Default()
	config.Features = FeatureConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if config.Features.Len() == 0 && len(config.Features.raw) == 0 {
		config.Features = DefaultFeatures()
	}
	if err := config.Features.resolve(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Network.MaxThoughtseeds < 1 {
		return fmt.Errorf("max_thoughtseeds must be at least 1, got %d", c.Network.MaxThoughtseeds)
	}
	if err := c.Network.CheckCount(c.Network.NumThoughtseeds); err != nil {
		return err
	}

	if err := c.Features.Validate(); err != nil {
		return err
	}

	if c.Pools.Capacity < 1 {
		return fmt.Errorf("pool capacity must be at least 1, got %d", c.Pools.Capacity)
	}
	if c.Pools.ActivationThreshold <= 0 || c.Pools.ActivationThreshold >= 1 {
		return fmt.Errorf("activation_threshold must be in (0, 1), got %f", c.Pools.ActivationThreshold)
	}

	validAlgorithms := map[string]bool{AlgorithmLouvain: true, AlgorithmModularity: true}
	if !validAlgorithms[c.Analytics.Algorithm] {
		return fmt.Errorf("invalid community algorithm: %s (valid: louvain, modularity)", c.Analytics.Algorithm)
	}
	if c.Analytics.Damping <= 0 || c.Analytics.Damping >= 1 {
		return fmt.Errorf("damping must be in (0, 1), got %f", c.Analytics.Damping)
	}
	if c.Analytics.Resolution < 0 {
		return fmt.Errorf("resolution must be non-negative, got %f", c.Analytics.Resolution)
	}

	validBackends := map[string]bool{BackendFile: true, BackendSQLite: true}
	if !validBackends[c.Persistence.Backend] {
		return fmt.Errorf("invalid persistence backend: %s (valid: file, sqlite)", c.Persistence.Backend)
	}
	if c.Persistence.Path == "" {
		return fmt.Errorf("persistence path is required")
	}
	if c.Persistence.Keep < 0 {
		return fmt.Errorf("persistence keep must be non-negative, got %d", c.Persistence.Keep)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// StorePath resolves the persistence path against root.
func (c *Config) StorePath(root string) string {
	if filepath.IsAbs(c.Persistence.Path) {
		return c.Persistence.Path
	}
	return filepath.Join(root, c.Persistence.Path)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("THOUGHTSEED_NUM_SEEDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Network.NumThoughtseeds = n
		}
	}

	if v := os.Getenv("THOUGHTSEED_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Network.RandomSeed = n
		}
	}

	if v := os.Getenv("THOUGHTSEED_STORE_BACKEND"); v != "" {
		config.Persistence.Backend = v
	}

	if v := os.Getenv("THOUGHTSEED_STORE_PATH"); v != "" {
		config.Persistence.Path = v
	}

	if v := os.Getenv("THOUGHTSEED_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// ApplyEnvOverrides applies environment variable overrides to a config loaded
// from an explicit file.
func ApplyEnvOverrides(config *Config) {
	applyEnvOverrides(config)
}
