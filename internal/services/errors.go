// Package services defines the business logic for the identification
// pipeline and the cache/history/favorites subsystem. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Only the pipeline (collaborator) errors below ever reach the HTTP
// layer. The cache subsystem itself never raises: a disabled or failing
// store degrades every cache operation to its neutral value (absent id,
// empty list, false), because caching is an optimization and must not
// become a point of failure for the product's primary function.
package services

import "errors"

var (
	// ErrNoImage is returned when a request carries neither a direct
	// image URL nor a source post URL that resolves to one.
	ErrNoImage = errors.New("no image to identify")

	// ErrResolveFailed is returned when a source post URL cannot be
	// resolved to a direct image URL (cache miss and scrape failure).
	ErrResolveFailed = errors.New("could not resolve source url to an image")

	// ErrSearchFailed is returned when the visual-search collaborator
	// fails or produces no usable text.
	ErrSearchFailed = errors.New("visual search failed")

	// ErrExtractFailed is returned when the AI extraction collaborator
	// cannot produce structured results from the search text.
	ErrExtractFailed = errors.New("could not extract structured results")
)
