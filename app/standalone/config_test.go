package standalone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/auth-fusion/authfusion/internal/server"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"loopback without key", Config{HttpConfig: server.HttpConfig{Host: "localhost", Port: 8080}}, nil},
		{"free port", Config{HttpConfig: server.HttpConfig{Host: "127.0.0.1", Port: 0}}, nil},
		{"all interfaces with key", Config{HttpConfig: server.HttpConfig{Host: "0.0.0.0", Port: 8080}, AuthKey: "k"}, nil},
		{"all interfaces without key", Config{HttpConfig: server.HttpConfig{Host: "0.0.0.0", Port: 8080}}, ErrUnauthenticated},
		{"empty host without key", Config{HttpConfig: server.HttpConfig{Port: 8080}}, ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Error(t, Config{HttpConfig: server.HttpConfig{Host: "localhost", Port: -1}}.Validate())
	assert.Error(t, Config{HttpConfig: server.HttpConfig{Host: "localhost", Port: 70000}}.Validate())
}

func TestConfig_Loopback(t *testing.T) {
	for host, want := range map[string]bool{
		"localhost": true,
		"LOCALHOST": true,
		"127.0.0.1": true,
		"127.1.2.3": true,
		"::1":       true,
		"[::1]":     true,
		"":          false,
		"0.0.0.0":   false,
		"10.0.0.5":  false,
		"scan.lan":  false,
	} {
		assert.Equal(t, want, Config{HttpConfig: server.HttpConfig{Host: host}}.Loopback(), host)
	}
}
