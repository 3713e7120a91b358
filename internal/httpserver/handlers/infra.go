package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode,omitempty"`
	Active  *int64 `json:"active,omitempty"`
	Total   *int64 `json:"total,omitempty"`
	File    string `json:"file,omitempty"`
	LastRun string `json:"last_run,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store": checkStore(r.Context(), d),
		}

		if d.Views != nil {
			active, total := d.Views.Active(), d.Views.Total()
			components["views"] = componentStatus{OK: true, Active: &active, Total: &total}
		}
		if d.ImportStatus != nil {
			components["import"] = importStatus(d.ImportStatus())
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     determineStatus(components),
			Components: components,
		})
	}
}

func determineStatus(components map[string]componentStatus) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "critical" // no store = no bookmarks and no sign-in
	}
	if imp, ok := components["import"]; ok && !imp.OK {
		return "degraded"
	}
	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Backend == nil {
		return componentStatus{Error: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Backend.Ping(ctx); err != nil {
		return componentStatus{
			Mode:   d.Backend.Kind(),
			Impact: "dashboard-unavailable",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: d.Backend.Kind()}
}

func importStatus(s deps.ImportStatus) componentStatus {
	st := componentStatus{OK: s.LastErr == nil, File: s.File, LastRun: "never"}
	if !s.LastRun.IsZero() {
		st.LastRun = s.LastRun.Format("2006-01-02 15:04:05")
	}
	if s.LastErr != nil {
		st.Error = s.LastErr.Error()
		st.Impact = "bookmarks-not-seeded"
	}
	return st
}
