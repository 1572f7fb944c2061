package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"artifactlive.org/internal/audit"
	"artifactlive.org/internal/auth"
)

type tokenRequest struct {
	Owner  string `json:"owner"`
	Secret string `json:"secret"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleAuthToken exchanges development credentials for a bearer token and
// makes sure the owner's default chart of accounts exists.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if a.issuer == nil || a.creds == nil || a.creds.Len() == 0 {
		writeError(w, r, http.StatusNotFound, kindUnauthenticated, "token issuance is disabled")
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}
	ownerID := strings.TrimSpace(req.Owner)
	if ownerID == "" || req.Secret == "" {
		badRequest(w, r, "owner and secret are required")
		return
	}
	if err := a.creds.Verify(ownerID, req.Secret); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.audit(r.Context(), audit.TokenDenied, map[string]any{"owner": ownerID})
			writeError(w, r, http.StatusUnauthorized, kindUnauthenticated, "invalid credentials")
			return
		}
		handleError(w, r, err)
		return
	}

	token, exp, err := a.issuer.Issue(ownerID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := a.ledger.ProvisionOwner(r.Context(), ownerID); err != nil {
		handleError(w, r, err)
		return
	}

	a.audit(auth.ContextWithOwner(r.Context(), ownerID), audit.TokenIssued, map[string]any{
		"expires_at": exp.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Owner: ownerID, ExpiresAt: exp})
}
