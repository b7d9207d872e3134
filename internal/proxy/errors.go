package proxy

import "fmt"

// UpstreamError reports a non-success response or a transport failure from
// the forwarded call. Status is the upstream's own status code, or zero
// when the request never produced a response (callers surface that as a
// gateway failure). Body carries the upstream body unchanged.
type UpstreamError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// AuthError reports unusable authentication configuration: a configured
// auth type with no credential, or an unsupported scheme. Fatal at startup.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return "auth: " + e.Message }
