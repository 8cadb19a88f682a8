package http

import "strings"

// ClientKey identifies the caller for rate limiting: first X-Forwarded-For hop, else remote IP.
func ClientKey(forwarded, remote string) string {
	if forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			forwarded = forwarded[:i]
		}
		return strings.TrimSpace(forwarded)
	}
	return remote
}
