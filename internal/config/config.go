package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/edirooss/pdxkernel/internal/kernel"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the binary looks for its configuration.
const DefaultPath = "pdxkernel.yaml"

// Config is the pdxkernel.yaml file.
type Config struct {
	// Kernel
	NProc          int           `yaml:"nproc"`
	NCPU           int           `yaml:"ncpu"`
	MaxPriority    int           `yaml:"max_priority"`
	DefaultBudget  int           `yaml:"default_budget"`
	TicksToPromote uint64        `yaml:"ticks_to_promote"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	KStacks        int           `yaml:"kstacks"`
	PIDMax         int           `yaml:"pid_max"`
	Debug          bool          `yaml:"debug"`

	// Boot program and its arguments, see internal/workload.
	Init []string `yaml:"init"`

	// Debug server
	HTTPAddress string `yaml:"http_address"`
	Dev         bool   `yaml:"dev"`

	// Snapshot archive; disabled when redis_address is empty.
	RedisAddress     string        `yaml:"redis_address"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	SnapshotKeep     int64         `yaml:"snapshot_keep"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	o := kernel.DefaultOptions()
	return &Config{
		NProc:            o.NProc,
		NCPU:             o.NCPU,
		MaxPriority:      o.MaxPriority,
		DefaultBudget:    o.DefaultBudget,
		TicksToPromote:   o.TicksToPromote,
		TickInterval:     time.Millisecond,
		PIDMax:           o.PIDMax,
		Init:             []string{"init"},
		HTTPAddress:      "127.0.0.1:8333",
		SnapshotInterval: 5 * time.Second,
		SnapshotKeep:     1000,
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects sizes and intervals the kernel cannot run with.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("nproc", int64(c.NProc))
	positive("ncpu", int64(c.NCPU))
	positive("default_budget", int64(c.DefaultBudget))
	positive("ticks_to_promote", int64(c.TicksToPromote))
	positive("tick_interval", int64(c.TickInterval))
	if c.MaxPriority < 0 {
		errs = append(errs, fmt.Errorf("max_priority must not be negative, got %d", c.MaxPriority))
	}
	if c.KStacks < 0 {
		errs = append(errs, fmt.Errorf("kstacks must not be negative, got %d", c.KStacks))
	}
	if c.PIDMax != 0 && c.PIDMax < c.NProc {
		errs = append(errs, fmt.Errorf("pid_max %d is smaller than nproc %d", c.PIDMax, c.NProc))
	}
	if len(c.Init) == 0 {
		errs = append(errs, errors.New("init must name a program"))
	}
	if c.RedisAddress != "" {
		positive("snapshot_interval", int64(c.SnapshotInterval))
		positive("snapshot_keep", c.SnapshotKeep)
	}
	return errors.Join(errs...)
}

// KernelOptions returns the kernel parameters of the configuration.
func (c *Config) KernelOptions() kernel.Options {
	return kernel.Options{
		NProc:          c.NProc,
		NCPU:           c.NCPU,
		MaxPriority:    c.MaxPriority,
		DefaultBudget:  c.DefaultBudget,
		TicksToPromote: c.TicksToPromote,
		KStacks:        c.KStacks,
		PIDMax:         c.PIDMax,
		Debug:          c.Debug,
	}
}
