package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/pranaya890/LMS/internal/config"
	"github.com/pranaya890/LMS/internal/server"
	"gorm.io/gorm"
)

// NewApp wraps the API router with static asset serving. Kept separate from
// server.New so end-to-end tests can exercise the full surface.
func NewApp(dbConn *gorm.DB, cfg config.Config) http.Handler {
	api := server.New(dbConn, cfg)

	fs := http.FileServer(http.Dir("static"))
	staticHandler := http.StripPrefix("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch filepath.Ext(r.URL.Path) {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		}
		if os.Getenv("DEV") != "1" {
			w.Header().Set("Cache-Control", "public, max-age=86400")
		} else {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		fs.ServeHTTP(w, r)
	}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 8 && r.URL.Path[:8] == "/static/" {
			staticHandler.ServeHTTP(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})
}
