package instagram

import "fmt"

// Graph API error code sets. Codes outside both sets are treated as
// permanent request failures: an unknown code must never be retried forever.
var (
	// criticalErrorCodes are platform codes that can never succeed on retry.
	// 190 is the invalid/expired token family, 200 the permission family,
	// 100 an invalid parameter.
	criticalErrorCodes = map[int]bool{100: true, 190: true, 200: true}

	// retryableErrorCodes are platform codes reported for temporary
	// conditions. 4 and 17 are the application/user request-limit codes,
	// 1, 2 and 341 the temporarily-unavailable family.
	retryableErrorCodes = map[int]bool{1: true, 2: true, 4: true, 17: true, 341: true}

	// rateLimitErrorCodes is the subset of retryable codes that signal a
	// call-quota hit rather than a generic outage.
	rateLimitErrorCodes = map[int]bool{4: true, 17: true}
)

// AuthError reports an invalid or expired access token, or a missing
// permission. Never retryable.
type AuthError struct {
	PlatformCode int
	Message      string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("instagram auth error (code %d): %s", e.PlatformCode, e.Message)
}

// RateLimitError reports that the platform rejected the call because the
// account's call quota is exhausted. Retryable after a cooldown.
type RateLimitError struct {
	PlatformCode int
	Message      string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("instagram rate limit hit (code %d): %s", e.PlatformCode, e.Message)
}

// TransientNetworkError wraps a transport failure or a platform code from
// the temporarily-unavailable family. Retryable.
type TransientNetworkError struct {
	PlatformCode int
	Message      string
	Err          error
}

func (e *TransientNetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("instagram transient network error: %v", e.Err)
	}
	return fmt.Sprintf("instagram temporarily unavailable (code %d): %s", e.PlatformCode, e.Message)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response body that could not be decoded.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("instagram malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// PermanentRequestError reports a request the platform rejected for a
// reason that will not change on retry, including unknown error codes.
type PermanentRequestError struct {
	PlatformCode int
	StatusCode   int
	Message      string
}

func (e *PermanentRequestError) Error() string {
	return fmt.Sprintf("instagram request rejected (code %d): %s", e.PlatformCode, e.Message)
}

// errorFromEnvelope maps a platform error envelope to the client taxonomy.
func errorFromEnvelope(code, statusCode int, message string) error {
	switch {
	case code == 190 || code == 200:
		return &AuthError{PlatformCode: code, Message: message}
	case rateLimitErrorCodes[code]:
		return &RateLimitError{PlatformCode: code, Message: message}
	case retryableErrorCodes[code]:
		return &TransientNetworkError{PlatformCode: code, Message: message}
	case criticalErrorCodes[code]:
		return &PermanentRequestError{PlatformCode: code, StatusCode: statusCode, Message: message}
	default:
		// Fail closed: unknown codes are not assumed retryable.
		return &PermanentRequestError{PlatformCode: code, StatusCode: statusCode, Message: message}
	}
}
