package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

// GetPollInterval returns the expiry poll interval. Short on purpose: the
// polls compare wall clock against persisted thresholds each tick.
func (Session) GetPollInterval() time.Duration {
	raw := GetEnv("SESSION_POLL_INTERVAL", "10s")
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 10 * time.Second
	}
	return interval
}
