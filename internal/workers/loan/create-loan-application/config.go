package createloanapplication

import "time"

type Config struct {
	Timeout time.Duration
	// Topic receives application-created events.
	Topic string
	// NumberAttempts bounds the draws for a free application number.
	NumberAttempts int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		Topic:          "loan-applications",
		NumberAttempts: 3,
	}
}
