package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/reconcile"
	"github.com/MrSnakeDoc/smartmarks/internal/view"
)

// Dashboard server-renders the signed-in identity's bookmarks. The page then
// opens /dashboard/live for realtime updates.
func Dashboard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := view.New(d.Gate, d.Backend, d.Backend, nil, d.Logger)
		defer v.Deactivate()

		ident, err := v.Activate(r.Context(), sessionToken(r, d.CookieName))
		if errors.Is(err, view.ErrUnauthenticated) {
			clearSessionCookie(w, d)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if ident.IsZero() {
			d.Logger.Error("failed to resolve session", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		data := dashboardData{
			Identity:  ident,
			Bookmarks: v.Snapshot(),
			Draft:     v.Draft(),
			Loading:   v.State() != reconcile.StateReady,
		}
		if err != nil {
			d.Logger.Warn("dashboard loaded without bookmarks",
				logger.String("user_id", ident.ID),
				logger.Error(err))
			data.Error = "Could not load your bookmarks."
		}
		render(w, d.Logger, dashboardPage, http.StatusOK, data)
	}
}
