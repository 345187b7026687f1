// Package handlers provides the HTTP handlers of the PillChecker API:
// medication scan upload and retrieval, stateless extraction and health.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
)

// ProfileHeader carries the caller's profile id, set by the upstream gateway
// after authentication.
const ProfileHeader = "X-Profile-ID"

type contextKey string

const profileIDKey contextKey = "profile_id"

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// RequireProfile rejects requests without a valid profile id header and
// stores the canonical id in the request context.
func RequireProfile(validator interfaces.DataValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(ProfileHeader)
			if raw == "" {
				RespondWithError(w, http.StatusUnauthorized, "missing "+ProfileHeader+" header")
				return
			}
			profileID, err := validator.ValidateProfileID(raw)
			if err != nil {
				logging.Warn("Rejected profile id", "profile_id", raw, "error", err)
				RespondWithError(w, http.StatusUnauthorized, "invalid "+ProfileHeader+" header")
				return
			}
			ctx := context.WithValue(r.Context(), profileIDKey, profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileID returns the profile id stored by RequireProfile.
func ProfileID(ctx context.Context) string {
	id, _ := ctx.Value(profileIDKey).(string)
	return id
}
