package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
)

// Index shows the sign-in page, or sends a signed-in visitor to the dashboard.
func Index(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := sessionToken(r, d.CookieName); token != "" {
			if _, err := d.Gate.Resolve(r.Context(), token); err == nil {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}
		}
		render(w, d.Logger, loginPage, http.StatusOK, loginData{})
	}
}

// Login checks the submitted handle and password and starts a session.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			render(w, d.Logger, loginPage, http.StatusBadRequest, loginData{Error: "Invalid form."})
			return
		}
		handle := r.PostFormValue("handle")

		token, sess, err := d.Gate.Login(r.Context(), handle, r.PostFormValue("password"))
		switch {
		case errors.Is(err, session.ErrInvalidHandle):
			render(w, d.Logger, loginPage, http.StatusBadRequest, loginData{Error: "Please enter a name."})
			return
		case errors.Is(err, session.ErrInvalidPassword):
			render(w, d.Logger, loginPage, http.StatusBadRequest, loginData{Handle: handle, Error: fmt.Sprintf(
				"Choose a password of %d to %d characters.", session.MinPasswordLen, session.MaxPasswordLen)})
			return
		case errors.Is(err, session.ErrInvalidCredentials):
			render(w, d.Logger, loginPage, http.StatusUnauthorized, loginData{Handle: handle, Error: "Wrong name or password."})
			return
		case err != nil:
			d.Logger.Error("sign-in failed", logger.Error(err))
			render(w, d.Logger, loginPage, http.StatusServiceUnavailable,
				loginData{Handle: handle, Error: "Sign-in is unavailable right now, please retry."})
			return
		}

		setSessionCookie(w, d, token, sess.ExpiresAt)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

// Logout ends the session and returns to the sign-in page.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Gate.Logout(r.Context(), sessionToken(r, d.CookieName)); err != nil {
			d.Logger.Warn("logout failed", logger.Error(err))
		}
		clearSessionCookie(w, d)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
