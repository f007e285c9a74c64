package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/auth"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/go-chi/chi/v5"
)

// actor returns the authenticated caller; routes using it sit behind Authenticate
func actor(r *http.Request) *types.User {
	return auth.UserFrom(r.Context())
}

func param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// queryInt parses an optional integer query parameter; absent means 0
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, errdefs.ErrInvalidArgument)
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter; absent means false
func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", name, errdefs.ErrInvalidArgument)
	}
	return b, nil
}

// queryStatus reads an optional issue status filter
func queryStatus(r *http.Request) (types.IssueStatus, error) {
	st := types.IssueStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if st != "" && !st.Valid() {
		return "", fmt.Errorf("unknown status %q: %w", st, errdefs.ErrInvalidArgument)
	}
	return st, nil
}
