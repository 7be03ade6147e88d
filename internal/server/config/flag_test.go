package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:8080", "-g", "127.0.0.1:9090", "-d", "db", "-e", "test",
				"-o", "5", "-t", "24", "-l", "10", "-r", "redis:6379",
			},
			expected: &Config{
				EndpointAddrHTTP:       "127.0.0.1:8080",
				EndpointAddrGRPC:       "127.0.0.1:9090",
				DatabaseDSN:            "db",
				Environment:            "test",
				OTPValidityDuration:    5 * time.Minute,
				SessionInactiveTimeout: 24 * time.Hour,
				OTPAttemptLimit:        10,
				RedisAddr:              "redis:6379",
			},
		},
		{
			name:        "bad int",
			args:        []string{"cmd", "-o", "ten"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
