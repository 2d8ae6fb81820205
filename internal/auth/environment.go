// Package auth implements request authentication for the admission layer:
// bearer-token session identity and API-key + HMAC programmatic identity
// with timestamp-based replay protection.
package auth

import (
	"fmt"
	"regexp"

	"payment-gateway/internal/common/errors"
)

// Environment identifies which credential universe an API key belongs to.
// It is parsed once from the key prefix at validation time and carried in
// request context; downstream code never re-inspects the raw key string.
type Environment int

const (
	// EnvironmentUnknown is the zero value for unparsed keys.
	EnvironmentUnknown Environment = iota
	// Sandbox is selected by test-mode keys.
	Sandbox
	// Production is selected by live-mode keys.
	Production
)

// String returns the directory's name for the environment.
func (e Environment) String() string {
	switch e {
	case Sandbox:
		return "sandbox"
	case Production:
		return "production"
	default:
		return "unknown"
	}
}

// EnvironmentFromString parses a directory environment name.
func EnvironmentFromString(s string) Environment {
	switch s {
	case "sandbox":
		return Sandbox
	case "production":
		return Production
	default:
		return EnvironmentUnknown
	}
}

// APIKey is a validated merchant API key with its parsed environment.
type APIKey struct {
	Raw         string
	Environment Environment
}

// keyPattern matches "<prefix>_test_<hex>" or "<prefix>_live_<hex>".
func keyPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s_(test|live)_[0-9a-f]+$`, regexp.QuoteMeta(prefix)))
}

// ParseAPIKey validates the key format and derives the environment from the
// mode segment: test keys map to Sandbox, live keys to Production.
func ParseAPIKey(raw, prefix string) (APIKey, error) {
	matches := keyPattern(prefix).FindStringSubmatch(raw)
	if matches == nil {
		return APIKey{}, errors.AuthError(errors.CodeInvalidAPIKey, "invalid API key format")
	}

	env := Sandbox
	if matches[1] == "live" {
		env = Production
	}

	return APIKey{Raw: raw, Environment: env}, nil
}
