package spec

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ExtractBaseURL returns the first non-empty server URL declared by the
// document, or "" when none is usable.
func ExtractBaseURL(doc *openapi3.T) string {
	if doc == nil {
		return ""
	}
	for _, s := range doc.Servers {
		if s == nil {
			continue
		}
		if u := strings.TrimSpace(s.URL); u != "" {
			return u
		}
	}
	return ""
}

// AuthHint inspects the document's security schemes and suggests an auth
// type and header name for the configured credential. Scheme names are
// visited in sorted order; the first supported scheme wins. ok is false
// when the document declares nothing usable.
//
// Supported schemes: apiKey carried in a header, and http bearer/basic.
func AuthHint(doc *openapi3.T) (authType, header string, ok bool) {
	if doc == nil || doc.Components == nil || len(doc.Components.SecuritySchemes) == 0 {
		return "", "", false
	}
	names := make([]string, 0, len(doc.Components.SecuritySchemes))
	for name := range doc.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref := doc.Components.SecuritySchemes[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		scheme := ref.Value
		switch scheme.Type {
		case "apiKey":
			if scheme.In == "header" {
				header = scheme.Name
				if header == "" {
					header = "X-API-Key"
				}
				return "apikey", header, true
			}
		case "http":
			switch strings.ToLower(scheme.Scheme) {
			case "bearer":
				return "bearer", "Authorization", true
			case "basic":
				return "basic", "Authorization", true
			}
		}
	}
	return "", "", false
}
