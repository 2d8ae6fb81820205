package auth

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"payment-gateway/internal/api"
	"payment-gateway/internal/common/errors"
	"payment-gateway/internal/common/logging"
)

// SessionClaims is the payload of dashboard session tokens.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// BearerAuthenticator validates Authorization: Bearer session tokens
// signed with the service's HMAC secret.
type BearerAuthenticator struct {
	secret []byte
	logger logging.Logger
}

// NewBearerAuthenticator creates a bearer-token authenticator.
func NewBearerAuthenticator(secret string, logger logging.Logger) *BearerAuthenticator {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &BearerAuthenticator{
		secret: []byte(secret),
		logger: logger.WithFields(logging.String("component", "bearer_auth")),
	}
}

// Authenticate extracts and verifies the bearer token from the request.
// A missing or non-Bearer header is UNAUTHORIZED; an expired token is
// TOKEN_EXPIRED; any other verification failure is INVALID_TOKEN.
func (a *BearerAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.AuthError(errors.CodeUnauthorized, "missing authorization header")
	}

	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		return nil, errors.AuthError(errors.CodeUnauthorized, "authorization header must use the Bearer scheme")
	}
	raw := strings.TrimSpace(header[len(scheme):])
	if raw == "" {
		return nil, errors.AuthError(errors.CodeUnauthorized, "missing bearer token")
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, stderrors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.AuthError(errors.CodeTokenExpired, "token has expired")
		}
		a.logger.Debug("Rejected bearer token", logging.String("reason", err.Error()))
		return nil, errors.AuthError(errors.CodeInvalidToken, "invalid token")
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs a session token for the given subject. Used by the session
// endpoint and by tests.
func (a *BearerAuthenticator) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.InternalError("failed to sign session token", err)
	}
	return signed, nil
}

// Middleware rejects requests without a valid session token and attaches
// the identity to the request context otherwise.
func (a *BearerAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.Authenticate(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalMiddleware attaches an identity when a valid token is present
// but lets anonymous requests through.
func (a *BearerAuthenticator) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, err := a.Authenticate(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}
