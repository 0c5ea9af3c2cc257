// Package config handles configuration for the upload broker server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"os"
	"time"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config holds runtime settings for the upload broker.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the public REST API.
//   - EndpointAddrGRPC: bind address of the gRPC health endpoint.
//   - Mode: "development" exposes error detail and debug logs; anything else is production.
//   - SecretKey: HMAC secret for bearer tokens (HS256). Empty disables token parsing.
//   - S3AccessKey / S3SecretKey: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint / S3UsePathStyle: object storage settings.
//   - UploadURLTTL / DownloadURLTTL: lifetime of signed URLs.
//   - ProviderTimeout: deadline applied to every storage provider call.
//   - MaxFileSize: ceiling for non-video uploads, in bytes.
//   - PreferredPartSize: starting part size for multipart planning, in bytes.
//   - PartURLConcurrency: how many part URLs are signed in parallel.
//   - AllowedContentTypes: exact, case-sensitive allow-list.
//   - AllowedOrigins: CORS origins; "*" allows any.
type Config struct {
	EndpointAddrHTTP    string
	EndpointAddrGRPC    string
	Mode                string
	SecretKey           string
	S3AccessKey         string
	S3SecretKey         string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	S3UsePathStyle      bool
	UploadURLTTL        time.Duration
	DownloadURLTTL      time.Duration
	ProviderTimeout     time.Duration
	MaxFileSize         int64
	PreferredPartSize   int64
	PartURLConcurrency  int
	AllowedContentTypes []string
	AllowedOrigins      []string
}

// DefaultContentTypes is the allow-list used when none is configured.
var DefaultContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"text/csv",
	"application/json",
	"application/zip",
	"video/mp4",
	"video/quicktime",
	"video/webm",
	"audio/mpeg",
}

// LoadDefaults populates Config with development defaults.
// NOTE: the S3 credentials match a local MinIO and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.Mode = ModeDevelopment
	c.SecretKey = ""
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "uploads"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3UsePathStyle = true
	c.UploadURLTTL = 15 * time.Minute
	c.DownloadURLTTL = 60 * time.Minute
	c.ProviderTimeout = 10 * time.Second
	c.MaxFileSize = 100 << 20
	c.PreferredPartSize = 50 << 20
	c.PartURLConcurrency = 8
	c.AllowedContentTypes = append([]string(nil), DefaultContentTypes...)
	c.AllowedOrigins = []string{"http://localhost:3000"}
}

// IsDevelopment reports whether error detail may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Mode == ModeDevelopment
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
