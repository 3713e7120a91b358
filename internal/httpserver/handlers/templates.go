package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	loginPage     = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/login.html"))
	dashboardPage = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/dashboard.html"))
)

type loginData struct {
	Handle string
	Error  string
}

type dashboardData struct {
	Identity  domain.Identity
	Bookmarks []domain.Bookmark
	Draft     domain.Draft
	Loading   bool
	Error     string
}

func render(w http.ResponseWriter, log logger.Logger, page *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := page.ExecuteTemplate(w, "page", data); err != nil {
		log.Error("failed to render page", logger.Error(err))
	}
}
