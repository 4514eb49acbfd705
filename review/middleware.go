package review

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/linkedin-agent/session"
)

type contextKey string

// SessionKey holds the *session.Session of an authenticated request.
const SessionKey contextKey = "review_session"

// requireSession rejects requests without a valid signed session cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cookieName)
		if err != nil {
			s.logger.Warn(r.Context(), "missing session cookie", map[string]interface{}{
				"path": r.URL.Path,
			})
			respondError(w, http.StatusUnauthorized, "review session required")
			return
		}

		var raw string
		if err := s.cookie.Decode(s.cookieName, cookie.Value, &raw); err != nil {
			s.logger.Warn(r.Context(), "invalid session cookie", map[string]interface{}{
				"error": err.Error(),
			})
			respondError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		sess, err := s.sessions.Validate(id, r.RemoteAddr)
		if err != nil {
			s.logger.Warn(r.Context(), "invalid or expired session", map[string]interface{}{
				"error":      err.Error(),
				"session_id": id.String(),
			})
			respondError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession extracts the review session from the request context.
func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*session.Session)
	return sess, ok
}
