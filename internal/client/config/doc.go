// Package config loads settings for the gallery CLI client.
//
// Sources are applied in order, later ones winning:
//
//  1. LoadDefaults
//  2. an optional JSON file given with -c/-config
//  3. command-line flags
//
// Supported flags:
//
//	-a string   base URL of the gallery server
//	-u string   user id sent in the X-User-ID header
//	-d string   path of the local token database
//	-i int      online check interval in seconds
//
// Durations in JSON may be strings such as "3s" or integer nanoseconds.
package config
