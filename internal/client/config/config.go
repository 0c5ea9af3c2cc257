package config

import "time"

// Config holds runtime settings for the uploadctl client.
//
// Fields:
//   - ServerURL: base URL of the upload broker REST API.
//   - Token: optional bearer token; the broker takes the owner from it.
//   - OwnerID: owner sent in the request body when no token is used.
//   - ContentType: overrides content type detection.
//   - Concurrency: how many parts are uploaded in parallel.
//   - Timeout: overall deadline for one upload.
type Config struct {
	ServerURL   string
	Token       string
	OwnerID     string
	ContentType string
	Concurrency int
	Timeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Concurrency = 4
	c.Timeout = 30 * time.Minute
}

// LoadConfig applies defaults and then command-line flags. It returns the
// positional arguments left after the flags.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
