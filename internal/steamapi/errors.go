package steamapi

import (
	"errors"
	"fmt"
)

// Classification buckets every outcome of a Steam Web API call. The pipeline
// decides retry and commit behavior from the classification alone, never from
// raw status codes.
type Classification string

const (
	ClassSuccess        Classification = "success"
	ClassNotFound       Classification = "not_found"
	ClassPrivateProfile Classification = "private_profile"
	ClassRateLimited    Classification = "rate_limited"
	ClassTransient      Classification = "transient_error"
	ClassMalformed      Classification = "malformed_response"
)

// Retryable reports whether a call with this classification may be retried.
// Private profiles and missing identities are terminal; retrying them only
// burns rate-limit budget.
func (c Classification) Retryable() bool {
	return c == ClassRateLimited || c == ClassTransient
}

// APIError is the classified failure of one logical Steam Web API operation.
type APIError struct {
	Endpoint       string
	Classification Classification
	StatusCode     int
	Err            error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("steam api %s: %s: %v", e.Endpoint, e.Classification, e.Err)
	}
	return fmt.Sprintf("steam api %s: %s (status %d)", e.Endpoint, e.Classification, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// ClassifyError extracts the classification from an error chain. Errors that
// did not originate from the client are treated as transient.
func ClassifyError(err error) Classification {
	if err == nil {
		return ClassSuccess
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Classification
	}
	return ClassTransient
}

// IsPrivateProfile reports whether err is a private-profile classification.
func IsPrivateProfile(err error) bool {
	return ClassifyError(err) == ClassPrivateProfile
}

// IsNotFound reports whether err is a not-found classification.
func IsNotFound(err error) bool {
	return ClassifyError(err) == ClassNotFound
}
