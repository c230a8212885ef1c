package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName identifies the browser session that draft and task data belong to.
const CookieName = "reframer_session"

type sessionKey struct{}

// Session assigns a session cookie on first contact and puts the session ID
// into the request context. The cookie itself carries no state; all draft and
// task data lives server-side keyed by this ID.
func Session(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(CookieName); err == nil && isValidSessionID(cookie.Value) {
				sessionID = cookie.Value
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				cookie := &http.Cookie{
					Name:     CookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				}
				if ttl > 0 {
					cookie.MaxAge = int(ttl.Seconds())
				}
				http.SetCookie(w, cookie)
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the session ID stored by the Session middleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// isValidSessionID rejects cookie values we did not mint. Session IDs double
// as upload folder names, so anything that is not a UUID stays out.
func isValidSessionID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
