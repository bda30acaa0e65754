package synchronizer

import (
	"time"

	"github.com/danmuck/sourcesync/internal/replica"
	"github.com/danmuck/sourcesync/internal/transport"
)

const (
	DefaultRefreshRate      = 15.0
	DefaultFullStateTimeout = 3 * time.Second
)

type Config struct {
	Transport transport.Config
	// RefreshRate is the poll loop frequency in Hz.
	RefreshRate float64
	// FullStateTimeout is how long a full state request may go unanswered
	// before it is sent again.
	FullStateTimeout time.Duration

	// Routes and ParameterLabels customize property resolution. Nil keeps
	// the replica defaults.
	Routes          map[string]replica.Location
	ParameterLabels map[string]string
}

func DefaultConfig() Config {
	return Config{
		Transport:        transport.DefaultConfig(),
		RefreshRate:      DefaultRefreshRate,
		FullStateTimeout: DefaultFullStateTimeout,
	}
}

func (c Config) WithDefaults() Config {
	c.Transport = c.Transport.WithDefaults()
	if c.RefreshRate <= 0 {
		c.RefreshRate = DefaultRefreshRate
	}
	if c.FullStateTimeout <= 0 {
		c.FullStateTimeout = DefaultFullStateTimeout
	}
	return c
}

// PollInterval is the time between poll ticks.
func (c Config) PollInterval() time.Duration {
	rate := c.RefreshRate
	if rate <= 0 {
		rate = DefaultRefreshRate
	}
	return time.Duration(float64(time.Second) / rate)
}
