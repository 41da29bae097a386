package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleargate/pamapi/internal/audit"
	"github.com/cleargate/pamapi/internal/services/iam"
	"github.com/cleargate/pamapi/internal/token"
	"github.com/cleargate/pamapi/internal/vault"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	MFAToken string `json:"mfa_token,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// HandleRoot greets unauthenticated callers.
func HandleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Welcome to the Secure Access Service",
		})
	}
}

// HandleLogin authenticates a principal and returns a session credential.
func HandleLogin(svc iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "Missing username or password", http.StatusBadRequest)
			return
		}

		result, err := svc.Login(r.Context(), req.Username, req.Password, req.MFAToken)
		if err != nil {
			log.Printf("login: %s: %v", req.Username, err)
			http.Error(w, "Login failed", http.StatusInternalServerError)
			return
		}

		switch result.Status {
		case iam.StatusSuccess:
			writeJSON(w, http.StatusOK, loginResponse{Token: result.Token})
		case iam.StatusMFARequired:
			http.Error(w, "MFA token required", http.StatusUnauthorized)
		case iam.StatusUnknownPrincipal:
			http.Error(w, "User not found", http.StatusNotFound)
		case iam.StatusInvalidCredential:
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		case iam.StatusRateLimited:
			http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		default:
			http.Error(w, "Login failed", http.StatusInternalServerError)
		}
	}
}

// HandleProtected greets the authenticated subject.
func HandleProtected(svc iam.Service, recorder audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authenticate(w, r, svc, recorder, "/protected")
		if !ok {
			return
		}
		// This route has no downstream pipeline call, so the terminal
		// outcome is recorded here.
		recorder.Record(claims.Subject, "/protected", "access_protected", "success")
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Hello, %s! You have access to this protected resource.", claims.Subject),
		})
	}
}

// HandleAction authorizes the named action for the authenticated subject.
func HandleAction(svc iam.Service, recorder audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := chi.URLParam(r, "action")
		claims, ok := authenticate(w, r, svc, recorder, "/action/"+action)
		if !ok {
			return
		}

		if !svc.Authorize(claims.Subject, claims.Roles, action) {
			http.Error(w, "Permission denied", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Action '%s' performed successfully", action),
		})
	}
}

// HandleVault leases the named secret to the authenticated subject.
func HandleVault(svc iam.Service, recorder audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "secret")
		claims, ok := authenticate(w, r, svc, recorder, "/vault/"+name)
		if !ok {
			return
		}

		grant, err := svc.LeaseSecret(claims.Subject, claims.Roles, name)
		switch {
		case errors.Is(err, iam.ErrPermissionDenied):
			http.Error(w, "Permission denied", http.StatusForbidden)
			return
		case errors.Is(err, vault.ErrSecretNotFound):
			http.Error(w, "Secret not found", http.StatusNotFound)
			return
		case err != nil:
			log.Printf("vault: lease %s for %s: %v", name, claims.Subject, err)
			http.Error(w, "Vault access failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"secret":     grant.Value,
			"expires_at": grant.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
}

// authenticate resolves the bearer credential on r. Failures are audited
// against endpoint with the unknown actor (there is no trusted subject yet)
// and answered with 401; the caller should return immediately when ok is
// false.
func authenticate(w http.ResponseWriter, r *http.Request, svc iam.Service, recorder audit.Recorder, endpoint string) (*token.Claims, bool) {
	claims, err := svc.ValidateAndExtract(r.Header.Get("Authorization"))
	if err != nil {
		recorder.Record(audit.UnknownActor, endpoint, "token_validation", auditStatusForTokenError(err))
		http.Error(w, "Token is invalid or expired", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

func auditStatusForTokenError(err error) string {
	switch {
	case errors.Is(err, token.ErrMalformedAuthorization):
		return "malformed_authorization"
	case errors.Is(err, token.ErrExpiredToken):
		return "expired_token"
	default:
		return "invalid_token"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}
