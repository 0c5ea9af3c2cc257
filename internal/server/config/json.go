package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/uploadbroker/internal/flagx"
	"github.com/dmitrijs2005/uploadbroker/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted. Pointer
// and zero values mean "keep what is already in Config".
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	Mode                string         `json:"mode"`
	SecretKey           string         `json:"secret_key"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3UsePathStyle      *bool          `json:"s3_use_path_style"`
	UploadURLTTL        timex.Duration `json:"upload_url_ttl"`
	DownloadURLTTL      timex.Duration `json:"download_url_ttl"`
	ProviderTimeout     timex.Duration `json:"provider_timeout"`
	MaxFileSize         int64          `json:"max_file_size"`
	PreferredPartSize   int64          `json:"preferred_part_size"`
	PartURLConcurrency  int            `json:"part_url_concurrency"`
	AllowedContentTypes []string       `json:"allowed_content_types"`
	AllowedOrigins      []string       `json:"allowed_origins"`
}

// parseJson overlays values from the file named by -c/-config (or
// $UPLOADBROKER_CONFIG) onto config. Without a path it does nothing; an
// unreadable file or invalid JSON panics, since the process cannot start
// with a half-applied configuration.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.Mode, c.Mode)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}
	if c.UploadURLTTL.Duration > 0 {
		config.UploadURLTTL = c.UploadURLTTL.Duration
	}
	if c.DownloadURLTTL.Duration > 0 {
		config.DownloadURLTTL = c.DownloadURLTTL.Duration
	}
	if c.ProviderTimeout.Duration > 0 {
		config.ProviderTimeout = c.ProviderTimeout.Duration
	}
	if c.MaxFileSize > 0 {
		config.MaxFileSize = c.MaxFileSize
	}
	if c.PreferredPartSize > 0 {
		config.PreferredPartSize = c.PreferredPartSize
	}
	if c.PartURLConcurrency > 0 {
		config.PartURLConcurrency = c.PartURLConcurrency
	}
	if len(c.AllowedContentTypes) > 0 {
		config.AllowedContentTypes = c.AllowedContentTypes
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
