package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/requestctx"
)

// SessionCookie names the cookie that carries the storefront session id.
const SessionCookie = "pizzeria_session"

// AttachRequestContext copies chi's request id into the request context
// under the key the logger reads, and echoes it back to the client.
func AttachRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set(requestctx.HeaderXRequestId, requestID)
		}
		ctx := requestctx.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Session resolves the session id from SessionCookie, issuing a new one
// when the cookie is missing or not a UUID.
func Session(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if c, err := r.Cookie(SessionCookie); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sessionID = id.String()
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := requestctx.WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
