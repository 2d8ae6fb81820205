package guard

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the bucket used when no client address can be resolved.
const UnknownClient = "unknown"

// ClientKey resolves the client identity for a request: the first entry of
// X-Forwarded-For when present, otherwise the transport-level peer address.
// Resolution never fails; unattributable requests share the "unknown" bucket.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}

	return UnknownClient
}
