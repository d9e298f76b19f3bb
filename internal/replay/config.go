package replay

import "time"

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 10 << 20
)

type Config struct {
	// Timeout bounds a whole replay: dial, proxy negotiation, TLS
	// handshake, writing the request and reading the response.
	Timeout time.Duration `conf:"timeout"`

	// InsecureSkipVerify disables certificate verification for the target
	// and for https proxies.
	InsecureSkipVerify bool `conf:"insecure"`

	// MaxBodySize caps the number of response body bytes kept for analysis,
	// both before and after content decoding.
	MaxBodySize int64 `conf:"max_body_size"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Timeout:            DefaultTimeout,
		InsecureSkipVerify: true,
		MaxBodySize:        DefaultMaxBodySize,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	return c
}
