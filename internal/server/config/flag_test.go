package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-g", "127.0.0.1:9091", "-m", "production", "-s", "secret",
				"-u", "user", "-p", "password", "-b", "bucket", "-r", "us-west-1", "-e", "http://endpoint",
				"-t", "5", "-d", "30", "-l", "1024", "-k", "10485760", "-n", "4",
				"-y", "image/png, video/mp4", "-o", "https://app.example.com",
			},
			expected: &Config{
				EndpointAddrHTTP:    "127.0.0.1:9090",
				EndpointAddrGRPC:    "127.0.0.1:9091",
				Mode:                "production",
				SecretKey:           "secret",
				S3AccessKey:         "user",
				S3SecretKey:         "password",
				S3Bucket:            "bucket",
				S3Region:            "us-west-1",
				S3BaseEndpoint:      "http://endpoint",
				UploadURLTTL:        5 * time.Minute,
				DownloadURLTTL:      30 * time.Minute,
				MaxFileSize:         1024,
				PreferredPartSize:   10 << 20,
				PartURLConcurrency:  4,
				AllowedContentTypes: []string{"image/png", "video/mp4"},
				AllowedOrigins:      []string{"https://app.example.com"},
			},
		},
		{
			name:        "bad integer",
			args:        []string{"-n", "many"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config, tt.args) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func TestParseFlags_IgnoresUnknownFlags(t *testing.T) {
	var c Config
	c.LoadDefaults()

	parseFlags(&c, []string{"-test.v=true", "-c", "conf.json", "-b", "other"})

	assert.Equal(t, "other", c.S3Bucket)
	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, DefaultContentTypes, c.AllowedContentTypes)
}
