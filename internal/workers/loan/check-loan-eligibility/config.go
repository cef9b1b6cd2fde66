package checkloaneligibility

import (
	"time"

	"loan-eligibility-workers/internal/eligibility"
)

type Config struct {
	Gate    eligibility.Config
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Gate:    eligibility.DefaultConfig(),
		Timeout: 5 * time.Second,
	}
}
