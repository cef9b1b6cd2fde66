package runverification

import "time"

type Config struct {
	Timeout              time.Duration
	CacheTTL             time.Duration
	CreditDriftThreshold int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:              30 * time.Second,
		CacheTTL:             15 * time.Minute,
		CreditDriftThreshold: 10,
	}
}
