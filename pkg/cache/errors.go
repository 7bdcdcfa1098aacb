package cache

import "errors"

var (
	// ErrNotFound is returned for missing files, tag ids outside the index,
	// skipped tag slots, absent global classes and unmatched BSP blocks.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousScenario is returned when zero or several scenario tags
	// match the scenario name recorded in the header.
	ErrAmbiguousScenario = errors.New("ambiguous scenario reference")

	// ErrAlreadyInitialized is returned when a one-shot index builder runs
	// twice.
	ErrAlreadyInitialized = errors.New("index already initialized")

	// ErrUnsupportedCache is returned for caches whose build is unknown or
	// whose engine has no reader.
	ErrUnsupportedCache = errors.New("unsupported cache file")

	// ErrInvalidHeader is returned when the file does not start with a
	// cache header.
	ErrInvalidHeader = errors.New("invalid cache header")

	// ErrClosed is returned by reads on a closed cache file.
	ErrClosed = errors.New("cache file closed")
)
