package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/types"
)

// ErrWrongRole is returned when an authenticated user lacks the required role
var ErrWrongRole = fmt.Errorf("insufficient role: %w", errdefs.ErrPermissionDenied)

// UserLoader resolves a token subject to the current account
type UserLoader interface {
	GetUser(id string) (*types.User, error)
}

type contextKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFrom returns the authenticated user, or nil for anonymous requests
func UserFrom(ctx context.Context) *types.User {
	user, _ := ctx.Value(contextKey{}).(*types.User)
	return user
}

// ErrorWriter renders an authentication or authorization failure
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests with bearer tokens
type Middleware struct {
	tokens  *TokenManager
	users   UserLoader
	onError ErrorWriter
}

// NewMiddleware creates the auth middleware. A nil onError writes a plain
// JSON error body.
func NewMiddleware(tokens *TokenManager, users UserLoader, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = writeError
	}
	return &Middleware{tokens: tokens, users: users, onError: onError}
}

// Authenticate rejects requests without a valid token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.resolve(r)
		if err != nil {
			m.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through anonymously
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.resolve(r)
		if err == nil {
			r = withUser(r, user)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only the given roles; it must run after Authenticate
func (m *Middleware) RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFrom(r.Context())
			if user == nil {
				m.onError(w, r, ErrMissingToken)
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.onError(w, r, ErrWrongRole)
		})
	}
}

// withUser attaches user to the request context and to its request logger
func withUser(r *http.Request, user *types.User) *http.Request {
	ctx := WithUser(r.Context(), user)
	return r.WithContext(log.WithUser(ctx, user.ID, string(user.Role)))
}

func (m *Middleware) resolve(r *http.Request) (*types.User, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := m.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}

	// Load the account so role changes and deletions apply immediately
	user, err := m.users.GetUser(claims.Subject)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			log.Ctx(r.Context()).Warn().Err(err).Str("user_id", claims.Subject).Msg("Failed to load token subject")
		}
		return nil, ErrInvalidToken
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusUnauthorized
	if errdefs.IsPermissionDenied(err) {
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
