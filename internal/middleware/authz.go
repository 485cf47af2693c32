package middleware

import (
	"net/http"

	"go-wiki-cms/internal/session"

	"github.com/casbin/casbin/v2"
)

// Session keys written by the auth handler and read here.
const (
	SessionUserKey = "user_subject"
	SessionRoleKey = "user_role"
)

// Authorizer creates the authorization middleware. It resolves the
// requesting identity from the session, stores it in the request context
// for downstream handlers, and enforces the Casbin policy by role.
func Authorizer(e casbin.IEnforcer, sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := sm.GetString(r.Context(), SessionUserKey)
			role := sm.GetString(r.Context(), SessionRoleKey)
			if subject == "" {
				subject = "anonymous"
			}
			if role == "" {
				role = "anonymous"
			}

			userInfo := &UserInfo{Subject: subject, Role: role}
			r = r.WithContext(SetUserInfo(r.Context(), userInfo))

			allowed, err := e.Enforce(role, r.URL.Path, r.Method)
			if err != nil {
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
