package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no URL was given.
	ErrNoTarget = errors.New("no URL specified")

	// ErrInvalidTarget is returned when the URL cannot be parsed.
	ErrInvalidTarget = errors.New("invalid URL")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidParallelism is returned when the fetch concurrency is not positive.
	ErrInvalidParallelism = errors.New("invalid parallelism: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrEmptyCategory is returned when no report category is configured.
	ErrEmptyCategory = errors.New("invalid category: must not be empty")

	// ErrEmptyLighthouseBinary is returned when the lighthouse path is empty.
	ErrEmptyLighthouseBinary = errors.New("invalid lighthouse binary: must not be empty")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoDBDir is returned when saving is enabled without a database directory.
	ErrNoDBDir = errors.New("no database directory: required when saving runs")
)
