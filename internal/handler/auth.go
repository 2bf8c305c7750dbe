package handler

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/firstaid/internal/i18n"
	"github.com/pavelanni/firstaid/internal/model"
)

const sessionCookieName = "session"

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := h.store.UserForSession(cookie.Value)
		if err != nil {
			h.logger.Error("failed to look up session", "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

// cookiePath scopes the session cookie to the base path the request came in on.
func cookiePath(r *http.Request) string {
	if bp := model.BasePathFromContext(r.Context()); bp != "" {
		return bp + "/"
	}
	return "/"
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		h.logger.Error("failed to get user", "error", err)
		h.loginFailed(w, r)
		return
	}
	if user == nil || !user.Active {
		h.loginFailed(w, r)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.loginFailed(w, r)
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if h.handleStoreError(w, err, "auth session") {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     cookiePath(r),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.config.SecureCookies,
	})
	h.logger.Info("user logged in", "username", user.Username, "role", user.Role)
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     cookiePath(r),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusUnauthorized, map[string]string{
		"error": appI18n.T(r.Context(), "LoginError"),
	})
}
