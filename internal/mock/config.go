package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads a mock configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// ValidateConfig validates the mock configuration
func ValidateConfig(config *Config) error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d out of range", config.Port)
	}
	if config.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}

	for i, fault := range config.Faults {
		switch fault.Route {
		case RouteCreateUser, RouteListUsers, RouteGetUser, RouteDeleteUser:
		default:
			return fmt.Errorf("fault %d: route must be one of %s, %s, %s, %s",
				i, RouteCreateUser, RouteListUsers, RouteGetUser, RouteDeleteUser)
		}
		if fault.Status != 0 && (fault.Status < 100 || fault.Status > 599) {
			return fmt.Errorf("fault %d: invalid status %d", i, fault.Status)
		}
		if fault.Every < 0 {
			return fmt.Errorf("fault %d: every cannot be negative", i)
		}
		if fault.Delay < 0 {
			return fmt.Errorf("fault %d: delay cannot be negative", i)
		}
	}

	return nil
}
