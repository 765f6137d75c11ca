// internal/workers/application/transition-status/config.go
package transitionstatus

import "time"

type Config struct {
	MaxJobsActive int
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}
