package rpools

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the file-loadable settings. The recognized knobs are the
// pool size and the WaitGroup initial count; anything else is the
// embedding application's business.
type Config struct {
	Workers      int `yaml:"workers"`
	InitialCount int `yaml:"initial_count"`
}

// DefaultConfig returns a config with one worker per CPU and a zero
// initial count.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// LoadConfig reads a yaml config from path, applying defaults for absent
// fields and validating the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("rpools: read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("rpools: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config against the constructor preconditions.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return ErrNoWorkers
	}
	if c.InitialCount < 0 {
		return fmt.Errorf("rpools: negative initial count %d", c.InitialCount)
	}
	return nil
}

// Options converts the config into pool Options.
func (c Config) Options() Options {
	return Options{Workers: c.Workers}
}

// WaitGroup creates a WaitGroup with the configured initial count.
func (c Config) WaitGroup() *WaitGroup {
	return NewWaitGroup(c.InitialCount)
}
