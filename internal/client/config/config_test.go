package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, 4, c.Concurrency)
	assert.Equal(t, 30*time.Minute, c.Timeout)
}

func TestLoadConfig_DefaultsWithoutFlags(t *testing.T) {
	cfg, rest, err := LoadConfig([]string{"movie.mp4"})

	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerURL)
	assert.Equal(t, []string{"movie.mp4"}, rest)
}
