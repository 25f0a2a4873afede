package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUpstreamUnavailable is returned when an external provider cannot be reached
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrUpstreamTimeout is returned when an external provider call exceeds its budget
	ErrUpstreamTimeout = errors.New("upstream provider timed out")

	// ErrNoStoresFound is returned when every store discovery tier came back empty
	ErrNoStoresFound = errors.New("no nearby stores found")

	// ErrNoConfidentMatch is returned when no listing clears the confidence threshold
	ErrNoConfidentMatch = errors.New("no confident product match")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
