package core

import (
	"errors"
	"fmt"
)

// Kind identifies which branch of the closed NetworkError taxonomy an
// error belongs to. The set is closed by design: callers that need to
// branch on failure mode should switch on Kind rather than pattern-match
// on error strings.
type Kind string

const (
	KindCancelled       Kind = "cancelled"
	KindInvalidResponse Kind = "invalid_response"
	KindTransport       Kind = "transport"
	KindNoData          Kind = "no_data"
	KindDecoding        Kind = "decoding"
	KindHTTP            Kind = "http"
)

// Sentinel errors for comparison with errors.Is(). Cancelled and
// InvalidResponse carry no payload, so a single sentinel is enough;
// Transport/Decoding/HTTP wrap an underlying cause via NetworkError.
var (
	ErrCancelled       = errors.New("cancelled")
	ErrInvalidResponse = errors.New("invalid response")
	ErrNoData          = errors.New("no data")
	ErrMaxRetries      = errors.New("maximum retries exceeded")
)

// NetworkError is the single error type returned by the request
// execution engine. Kind selects which of Status/Body/Err is populated.
type NetworkError struct {
	Kind   Kind
	Status int    // populated for KindHTTP
	Body   []byte // populated for KindHTTP
	Err    error  // populated for KindTransport, KindDecoding; nil otherwise
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("http %d: %s", e.Status, truncate(e.Body, 256))
	case KindTransport:
		return fmt.Sprintf("transport: %v", e.Err)
	case KindDecoding:
		return fmt.Sprintf("decoding: %v", e.Err)
	case KindCancelled:
		return "cancelled"
	case KindInvalidResponse:
		return "invalid response"
	case KindNoData:
		return "no data"
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *NetworkError) Unwrap() error {
	switch e.Kind {
	case KindCancelled:
		return ErrCancelled
	case KindInvalidResponse:
		return ErrInvalidResponse
	case KindNoData:
		return ErrNoData
	default:
		return e.Err
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Cancelled builds the cancellation error variant.
func Cancelled() *NetworkError {
	return &NetworkError{Kind: KindCancelled}
}

// InvalidResponse builds the invalid-response variant (transport returned
// something that isn't a well-formed HTTP response).
func InvalidResponse() *NetworkError {
	return &NetworkError{Kind: KindInvalidResponse}
}

// Transport wraps an underlying transport failure (connect, TLS, read,
// write, timeout).
func Transport(err error) *NetworkError {
	return &NetworkError{Kind: KindTransport, Err: err}
}

// NoData builds the "decode required a body but none was present" variant.
func NoData() *NetworkError {
	return &NetworkError{Kind: KindNoData}
}

// Decoding wraps a body-decode failure.
func Decoding(err error) *NetworkError {
	return &NetworkError{Kind: KindDecoding, Err: err}
}

// HTTP builds the "decode helper received a non-2xx response" variant.
func HTTP(status int, body []byte) *NetworkError {
	return &NetworkError{Kind: KindHTTP, Status: status, Body: body}
}

// IsCancelled reports whether err is (or wraps) a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsRetryable reports whether err represents a transient failure that the
// retry interceptor should re-attempt: a transport error, or an HTTP
// error whose status is in the retryable set (5xx, 408, 429). Cancelled
// errors are never retryable.
func IsRetryable(err error) bool {
	var ne *NetworkError
	if !errors.As(err, &ne) {
		return false
	}
	switch ne.Kind {
	case KindCancelled:
		return false
	case KindTransport:
		return true
	case KindHTTP:
		return IsRetryableStatus(ne.Status)
	default:
		return false
	}
}

// IsRetryableStatus reports whether an HTTP status code should trigger a
// retry under the policy table in spec §4.3: 5xx, 408, and 429.
func IsRetryableStatus(status int) bool {
	if status >= 500 && status < 600 {
		return true
	}
	return status == 408 || status == 429
}
