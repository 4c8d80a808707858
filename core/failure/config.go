package failure

// Config holds configuration for failure tracking.
type Config struct {
	// FailureThreshold is the streak length at which status recommends a resync.
	FailureThreshold int `mapstructure:"failure_threshold" default:"3"`
}

// Threshold returns the configured threshold or DefaultThreshold.
func (c Config) Threshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultThreshold
	}
	return c.FailureThreshold
}
