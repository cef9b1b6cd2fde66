package indexverificationreport

import "time"

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Index:   "verification-reports",
		Timeout: 10 * time.Second,
	}
}
