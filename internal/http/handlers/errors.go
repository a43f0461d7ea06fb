// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail() helper
// and give clients a stable, machine-readable error taxonomy alongside the
// human-readable messages. Codes are lowercase snake_case; generic codes
// mirror common HTTP status semantics while domain-specific codes carry
// business failures that status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeNoImage          = "no_image"
	ErrCodeResolveFailed    = "resolve_failed"
	ErrCodeSearchFailed     = "search_failed"
	ErrCodeExtractFailed    = "extract_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
