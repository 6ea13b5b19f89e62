package tracker

import (
	"fmt"
	"time"
)

type Config struct {
	// Timeout bounds each announce attempt against a single tracker.
	Timeout time.Duration
	// FallbackOnFailure moves on to the next tracker when one answers with
	// a "failure reason" instead of stopping there.
	FallbackOnFailure bool
	// MaxResponseSize caps the number of body bytes read from a tracker.
	MaxResponseSize int64
	// OnAttempt, if set, is called after every attempt with its error, or
	// nil when the tracker answered with a usable response.
	OnAttempt func(trackerURL string, err error)
}

var DefaultConfig = Config{
	Timeout:           15 * time.Second,
	FallbackOnFailure: false,
	MaxResponseSize:   4 << 20,
}

func validate(config Config) error {
	if config.Timeout <= 0 {
		err := fmt.Errorf("tracker timeout must be positive, got %s", config.Timeout)
		return err
	}
	if config.MaxResponseSize <= 0 {
		err := fmt.Errorf("tracker response size limit must be positive, got %d", config.MaxResponseSize)
		return err
	}
	return nil
}
