package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"artifactlive.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth resolves the owner of the request from its bearer token. When no
// issuer is configured every request runs as the default owner.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if a.issuer == nil {
			if a.defaultOwner == "" {
				writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "authentication is not configured")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithOwner(r.Context(), a.defaultOwner)))
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, err.Error())
			return
		}
		claims, err := a.issuer.Parse(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "invalid token")
				return
			}
			handleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithOwner(r.Context(), claims.Owner())))
	})
}

// owner is only called behind withAuth.
func owner(r *http.Request) string {
	o, _ := auth.OwnerFromContext(r.Context())
	return o
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
