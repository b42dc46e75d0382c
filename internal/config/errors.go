package config

import "errors"

// Sentinel errors for config construction; the CLI matches these with
// errors.Is to decide its exit message.
var (
	ErrFileDoesNotExist  = errors.New("config file does not exist")
	ErrReadConfigFail    = errors.New("failed to read config file")
	ErrConfigParsingFail = errors.New("failed to parse config file")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
