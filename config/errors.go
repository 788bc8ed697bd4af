package config

import "errors"

var (
	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrReadConfig indicates the configuration file could not be read or parsed.
	ErrReadConfig = errors.New("cannot read configuration")
)
