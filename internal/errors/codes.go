package errors

import "net/http"

// ErrorCode is the machine-readable error family carried in the "error"
// field of every JSON error response the gate emits.
type ErrorCode string

const (
	// ErrCodePaymentRequired asks the caller to pay before retrying: no
	// key yet, or a valid key whose payment has not been seen.
	ErrCodePaymentRequired ErrorCode = "payment_required"

	// ErrCodeForbidden rejects the request outright: foreign agent keys
	// and failed browser challenges.
	ErrCodeForbidden ErrorCode = "forbidden"

	// ErrCodeRateLimited throttles challenge verification attempts.
	ErrCodeRateLimited ErrorCode = "rate_limited"

	// ErrCodeServerError signals the gate cannot verify payments at all,
	// by misconfiguration or an unreachable merchant config.
	ErrCodeServerError ErrorCode = "server_error"
)

// HTTPStatus returns the status code every response carrying this error
// code uses. The mapping is fixed; callers never pick a status directly.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrCodePaymentRequired:
		return http.StatusPaymentRequired
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
