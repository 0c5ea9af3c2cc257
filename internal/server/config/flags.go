package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-m", "-s", "-u", "-p", "-b", "-r", "-e", "-t", "-d", "-l", "-k", "-n", "-y", "-o"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   REST bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-m string   mode: development | production
//	-s string   bearer token HMAC secret
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-t int      upload URL validity, minutes
//	-d int      download URL validity, minutes
//	-l int      maximum non-video file size, bytes
//	-k int      preferred multipart part size, bytes
//	-n int      part URL signing concurrency
//	-y string   comma-separated allowed content types
//	-o string   comma-separated allowed CORS origins
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the REST API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the gRPC health endpoint")
	fs.StringVar(&config.Mode, "m", config.Mode, "mode (development|production)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "bearer token secret key")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	uploadTTL := fs.Int("t", int(config.UploadURLTTL.Minutes()), "upload URL validity (in minutes)")
	downloadTTL := fs.Int("d", int(config.DownloadURLTTL.Minutes()), "download URL validity (in minutes)")

	fs.Int64Var(&config.MaxFileSize, "l", config.MaxFileSize, "maximum non-video file size (bytes)")
	fs.Int64Var(&config.PreferredPartSize, "k", config.PreferredPartSize, "preferred multipart part size (bytes)")
	fs.IntVar(&config.PartURLConcurrency, "n", config.PartURLConcurrency, "part URL signing concurrency")

	contentTypes := fs.String("y", strings.Join(config.AllowedContentTypes, ","), "allowed content types")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		panic(err)
	}

	config.UploadURLTTL = time.Duration(*uploadTTL) * time.Minute
	config.DownloadURLTTL = time.Duration(*downloadTTL) * time.Minute
	config.AllowedContentTypes = splitList(*contentTypes)
	config.AllowedOrigins = splitList(*origins)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
