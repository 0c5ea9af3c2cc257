package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   broker base URL (default from Config)
//	-k string   bearer token
//	-o string   owner id
//	-t string   content type
//	-n int      parallel part uploads
//	-w int      upload deadline in seconds
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("uploadctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "broker base URL")
	fs.StringVar(&cfg.Token, "k", cfg.Token, "bearer token")
	fs.StringVar(&cfg.OwnerID, "o", cfg.OwnerID, "owner id")
	fs.StringVar(&cfg.ContentType, "t", cfg.ContentType, "content type (detected when empty)")
	fs.IntVar(&cfg.Concurrency, "n", cfg.Concurrency, "parallel part uploads")
	timeout := fs.Int("w", int(cfg.Timeout.Seconds()), "upload deadline (in seconds)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	return fs.Args(), nil
}
