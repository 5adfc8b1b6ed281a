package iads

import (
	"fmt"
)

// Config holds the run parameters of the IADS simulation.
type Config struct {
	ScenarioPath string
	Seed         int64
	EndTime      float64 // seconds; zero keeps the scenario's own end time
	OutputASI    string  // SIMDIS export path, empty disables
	MetricsAddr  string  // Prometheus exposition address, empty disables
	Narrate      bool
}

// ValidateAndParse validates and parses the raw parameters into a Config.
func ValidateAndParse(params map[string]interface{}) (*Config, error) {
	config := &Config{Narrate: true}

	if v, ok := params["scenario"]; ok {
		config.ScenarioPath = fmt.Sprintf("%v", v)
	}
	if config.ScenarioPath == "" {
		return nil, fmt.Errorf("scenario path is required")
	}

	if v, ok := params["seed"]; ok {
		switch val := v.(type) {
		case int:
			config.Seed = int64(val)
		case int64:
			config.Seed = val
		case float64:
			config.Seed = int64(val)
		default:
			return nil, fmt.Errorf("seed must be an integer")
		}
	}

	if v, ok := params["end_time_s"]; ok {
		switch val := v.(type) {
		case float64:
			config.EndTime = val
		case int:
			config.EndTime = float64(val)
		default:
			return nil, fmt.Errorf("end_time_s must be a number")
		}
		if config.EndTime < 0 {
			return nil, fmt.Errorf("end_time_s must not be negative")
		}
	}

	if v, ok := params["output_asi"]; ok {
		config.OutputASI = fmt.Sprintf("%v", v)
	}
	if v, ok := params["metrics_addr"]; ok {
		config.MetricsAddr = fmt.Sprintf("%v", v)
	}
	if v, ok := params["narrate"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("narrate must be a boolean")
		}
		config.Narrate = b
	}

	return config, nil
}
