package proxy

import (
	"strings"
)

// Auth types accepted in configuration and derived from security schemes.
const (
	AuthBearer = "bearer"
	AuthAPIKey = "apikey"
	AuthBasic  = "basic"
)

// AuthHeader is a fully resolved credential: the header to set and the
// final value to send. The zero value means "no authentication".
type AuthHeader struct {
	Name  string
	Value string
}

// BuildAuthHeader combines an auth type, header name, and already-resolved
// credential value into the outgoing header. The credential itself is never
// parsed or stored beyond this; header defaults follow the auth type.
func BuildAuthHeader(authType, header, value string) (AuthHeader, error) {
	authType = strings.ToLower(strings.TrimSpace(authType))
	if authType == "" {
		return AuthHeader{}, nil
	}
	if strings.TrimSpace(value) == "" {
		return AuthHeader{}, &AuthError{Message: "auth type " + authType + " is configured but no credential value is set"}
	}
	switch authType {
	case AuthBearer:
		if header == "" {
			header = "Authorization"
		}
		return AuthHeader{Name: header, Value: "Bearer " + value}, nil
	case AuthBasic:
		if header == "" {
			header = "Authorization"
		}
		return AuthHeader{Name: header, Value: "Basic " + value}, nil
	case AuthAPIKey, "api-key", "api_key":
		if header == "" {
			header = "X-API-Key"
		}
		return AuthHeader{Name: header, Value: value}, nil
	default:
		return AuthHeader{}, &AuthError{Message: "unsupported auth type " + authType}
	}
}

var sensitiveHeaders = map[string]bool{
	"authorization":  true,
	"x-api-key":      true,
	"api-key":        true,
	"x-auth-token":   true,
	"x-access-token": true,
}

// SanitizeHeaders masks credential material before headers reach a log
// line, keeping the scheme visible.
func SanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if !sensitiveHeaders[strings.ToLower(name)] {
			out[name] = value
			continue
		}
		lower := strings.ToLower(value)
		switch {
		case strings.HasPrefix(lower, "bearer "):
			out[name] = "Bearer [REDACTED]"
		case strings.HasPrefix(lower, "basic "):
			out[name] = "Basic [REDACTED]"
		default:
			out[name] = "[REDACTED]"
		}
	}
	return out
}
