package limiter

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LimitConfig is the YAML representation of a Limit. Windows are
// expressed in (possibly fractional) seconds.
type LimitConfig struct {
	MaxRequests   int     `yaml:"max_requests"`
	WindowSeconds float64 `yaml:"window_seconds"`
}

// Limit converts the config entry to a Limit.
func (c LimitConfig) Limit() Limit {
	return Limit{
		MaxRequests: c.MaxRequests,
		Window:      time.Duration(c.WindowSeconds * float64(time.Second)),
	}
}

// LimitsConfig is a limits file: an optional default limit plus per-key
// overrides.
//
//	default:
//	  max_requests: 100
//	  window_seconds: 60
//	overrides:
//	  premium:
//	    max_requests: 1000
//	    window_seconds: 60
type LimitsConfig struct {
	Default   *LimitConfig           `yaml:"default"`
	Overrides map[string]LimitConfig `yaml:"overrides"`
}

// LoadLimits reads and validates a YAML limits file. It fails on an
// unreadable file, malformed YAML, or any invalid limit; a file that
// validates is guaranteed to apply cleanly.
func LoadLimits(path string) (*LimitsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file %q: %w", path, err)
	}

	var cfg LimitsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse limits file %q: %w", path, err)
	}

	if cfg.Default != nil {
		if err := cfg.Default.Limit().Validate(); err != nil {
			return nil, fmt.Errorf("limits file %q: default: %w", path, err)
		}
	}
	for key, entry := range cfg.Overrides {
		if err := entry.Limit().Validate(); err != nil {
			return nil, fmt.Errorf("limits file %q: override %q: %w", path, key, err)
		}
	}
	return &cfg, nil
}

// DefaultLimit returns the file's default limit, if one was set.
func (c *LimitsConfig) DefaultLimit() (Limit, bool) {
	if c.Default == nil {
		return Limit{}, false
	}
	return c.Default.Limit(), true
}

// Apply installs every override on the strategy via SetLimit.
func (c *LimitsConfig) Apply(s Strategy) error {
	for key, entry := range c.Overrides {
		if err := s.SetLimit(key, entry.Limit()); err != nil {
			return fmt.Errorf("apply override %q: %w", key, err)
		}
	}
	return nil
}
