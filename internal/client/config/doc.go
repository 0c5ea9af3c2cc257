// Package config loads runtime configuration for the uploadctl client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Command-line flags (see parseFlags), which override defaults.
//
// Supported flags
//
//	-a string   broker base URL
//	-k string   bearer token
//	-o string   owner id (ignored by the broker when a token is given)
//	-t string   content type
//	-n int      parallel part uploads
//	-w int      upload deadline (seconds)
//
// Anything after the flags is returned to the caller as positional
// arguments (the files to upload).
package config
