package shared

import (
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Pipeline stage errors. The typed errors below match these with [errors.Is].
	ErrAuthFailed = fmt.Errorf("authentication failed")
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrDecode     = fmt.Errorf("unexpected record shape")
	ErrStorage    = fmt.Errorf("storage operation failed")

	ErrUnsupportedObject = fmt.Errorf("unsupported object type")
	ErrQueue             = fmt.Errorf("work queue operation failed")
	ErrTokenStore        = fmt.Errorf("token store operation failed")
	ErrNotFound          = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// AuthError reports a failed credential exchange.
type AuthError struct {
	StatusCode int // zero when the exchange never got a response
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: token endpoint returned status %d: %v", ErrAuthFailed, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrAuthFailed, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailed }

// FetchError reports a paginated or bulk request that did not succeed.
//
// StatusCode is zero for transport failures, including an expired deadline.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: GET %s: status %d", ErrAPIRequest, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%v: GET %s: %v", ErrAPIRequest, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrAPIRequest }

// Permanent reports whether repeating the request cannot succeed.
//
// Client errors are permanent except for expired credentials and throttling.
func (e *FetchError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// DecomposeError reports a raw item whose shape does not match the entity schemas.
type DecomposeError struct {
	Index int    // position of the item in the fetched sequence
	Path  string // dotted path of the offending field
	Err   error
}

func (e *DecomposeError) Error() string {
	return fmt.Sprintf("%v: item %d, field %q: %v", ErrDecode, e.Index, e.Path, e.Err)
}

func (e *DecomposeError) Unwrap() error { return e.Err }

func (e *DecomposeError) Is(target error) bool { return target == ErrDecode }

// StorageError reports a bucket or object write failure.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%v: %s %s: %v", ErrStorage, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%v: %s %s/%s: %v", ErrStorage, e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
