package standalone

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/auth-fusion/authfusion/internal/server"
)

var ErrUnauthenticated = errors.New("serving on a non-loopback address requires auth.key")

type Config struct {
	// HttpConfig represents the configuration for the HTTP server.
	HttpConfig server.HttpConfig `conf:",squash"`

	// AuthKey is the api-key required by POST /scan.
	AuthKey string `conf:"-"`
}

// Validate rejects ports outside the TCP range, and an empty AuthKey unless
// the server only listens on loopback. Port 0 picks a free port.
func (c Config) Validate() error {
	if c.HttpConfig.Port < 0 || c.HttpConfig.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.HttpConfig.Port)
	}

	if c.AuthKey == "" && !c.Loopback() {
		return fmt.Errorf("%w: host %q", ErrUnauthenticated, c.HttpConfig.Host)
	}

	return nil
}

// Loopback reports whether the listen host only accepts local connections.
// An empty host listens on every interface.
func (c Config) Loopback() bool {
	host := strings.Trim(c.HttpConfig.Host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
