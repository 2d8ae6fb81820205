package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"payment-gateway/internal/api"
	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
	"payment-gateway/internal/directory"
)

// Signed-request headers.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

// SignedRequestConfig holds the parameters of API-key authentication.
type SignedRequestConfig struct {
	// KeyPrefix is the leading segment of merchant API keys ("pk" by
	// default, giving pk_test_... and pk_live_... keys).
	KeyPrefix string
	// Tolerance is the maximum allowed clock skew between the request
	// timestamp and server time, in either direction.
	Tolerance time.Duration
}

// APIKeyAuthenticator verifies programmatic requests: a merchant API key
// plus an HMAC-SHA256 signature over "{timestamp}.{body}" keyed with the
// merchant's stored secret. The timestamp must fall within the configured
// tolerance of server time regardless of whether the signature matches.
type APIKeyAuthenticator struct {
	directory directory.Directory
	config    SignedRequestConfig
	logger    logging.Logger
	now       func() time.Time
}

// NewAPIKeyAuthenticator creates an authenticator backed by the given
// credential directory.
func NewAPIKeyAuthenticator(dir directory.Directory, config SignedRequestConfig, logger logging.Logger) *APIKeyAuthenticator {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "pk"
	}
	if config.Tolerance <= 0 {
		config.Tolerance = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &APIKeyAuthenticator{
		directory: dir,
		config:    config,
		logger:    logger.WithFields(logging.String("component", "apikey_auth")),
		now:       time.Now,
	}
}

// ComputeSignature returns the hex HMAC-SHA256 digest of
// "{timestamp}.{body}" keyed with secret. Exported so client SDKs and
// tests sign requests the same way the verifier checks them.
func ComputeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate verifies the request's key, signature, and timestamp, and
// returns the merchant identity on success. The request body is read for
// signing and restored so downstream handlers can consume it again.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*APIIdentity, error) {
	rawKey := r.Header.Get(HeaderAPIKey)
	if rawKey == "" {
		return nil, errors.AuthError(errors.CodeInvalidAPIKey, "missing API key")
	}
	key, err := ParseAPIKey(rawKey, a.config.KeyPrefix)
	if err != nil {
		return nil, err
	}

	signature := r.Header.Get(HeaderSignature)
	if signature == "" {
		return nil, errors.AuthError(errors.CodeSignatureMissing, "missing request signature")
	}
	timestamp := r.Header.Get(HeaderTimestamp)
	if timestamp == "" {
		return nil, errors.AuthError(errors.CodeTimestampMissing, "missing request timestamp")
	}

	body, err := preserveBody(r)
	if err != nil {
		return nil, errors.InternalError("failed to read request body", err)
	}

	credential, err := a.directory.LookupByAPIKey(r.Context(), key.Raw)
	if err == directory.ErrNotFound {
		return nil, errors.AuthError(errors.CodeInvalidAPIKey, "unknown API key")
	}
	if err != nil {
		return nil, errors.InternalError("credential lookup failed", err)
	}

	if !credential.Active {
		return nil, errors.AuthError(errors.CodeAccountInactive, "account is inactive")
	}
	if key.Environment != EnvironmentFromString(credential.Environment) {
		// A test key must never resolve a production credential or the
		// other way round, even if the directory record is stale.
		return nil, errors.AuthError(errors.CodeInvalidAPIKey, "API key environment mismatch")
	}

	expected := ComputeSignature(credential.HashedSecret, timestamp, body)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		a.logger.Warn("Rejected request with bad signature",
			logging.String("merchant_id", credential.ID))
		return nil, errors.AuthError(errors.CodeInvalidSignature, "request signature does not match")
	}

	if err := a.checkTimestamp(timestamp); err != nil {
		return nil, err
	}

	return &APIIdentity{
		MerchantID:  credential.ID,
		Email:       credential.Email,
		APIKey:      key.Raw,
		Environment: key.Environment,
	}, nil
}

// checkTimestamp enforces the replay window. A signature computed over a
// stale timestamp cannot be replayed outside the tolerance even though it
// still verifies.
func (a *APIKeyAuthenticator) checkTimestamp(timestamp string) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.ValidationError("request timestamp must be a Unix epoch integer").
			WithCode(errors.CodeTimestampOutOfRange)
	}

	skew := a.now().Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.config.Tolerance {
		return errors.AuthError(errors.CodeTimestampOutOfRange, "request timestamp outside the allowed window").
			WithContext("tolerance_seconds", int(a.config.Tolerance.Seconds()))
	}
	return nil
}

// Middleware rejects unsigned or badly signed requests and attaches the
// merchant identity to the request context otherwise.
func (a *APIKeyAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.Authenticate(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAPIIdentity(r.Context(), identity)))
	})
}

// preserveBody reads the full request body and replaces it with a fresh
// reader so handlers downstream still see the payload.
func preserveBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
