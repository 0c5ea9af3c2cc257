package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		rest      []string
		expectErr bool
	}{
		{name: "Test1 OK", args: []string{"-a", "http://broker:8080", "-k", "tok", "-o", "alice", "-t", "video/mp4", "-n", "8", "-w", "60", "movie.mp4"},
			expected: &Config{ServerURL: "http://broker:8080", Token: "tok", OwnerID: "alice", ContentType: "video/mp4", Concurrency: 8, Timeout: time.Minute},
			rest:     []string{"movie.mp4"}},
		{name: "Test2 incorrect timeout", args: []string{"-w", "abc"}, expectErr: true, expected: &Config{}},
		{name: "Test3 unknown flag", args: []string{"-z"}, expectErr: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			rest, err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(config, tt.expected))
			assert.Equal(t, tt.rest, rest)
		})
	}
}
