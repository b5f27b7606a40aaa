package server

import (
	"net/http"

	"github.com/pranaya890/LMS/internal/auth"
	"github.com/pranaya890/LMS/internal/config"
	"github.com/pranaya890/LMS/internal/handlers"
	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/services"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares
// applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// Sessions naming deleted accounts are treated as anonymous.
	auth.SetVerifier(handlers.VerifyPrincipal(db))

	notifications := services.NewNotificationService(db)
	analytics := services.NewAnalyticsService(db)
	ratings := services.NewRatingService(db)
	loans := services.NewLoanService(db, cfg.IssueLimit, cfg.FineRate, cfg.FineMode == config.FineModeAccrue, notifications, analytics)

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, werr := w.Write([]byte(`{"status":"degraded"}`)); werr != nil {
				_ = werr
			}
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	// Public catalog
	bh := handlers.NewBookHandler(db, ratings, analytics, cfg.CoverDir)
	mux.Handle("/books", auth.Middleware(http.HandlerFunc(bh.List)))
	mux.Handle("/books/details", auth.Middleware(http.HandlerFunc(bh.Details)))

	ah := handlers.NewAnalyticsHandler(analytics)
	mux.HandleFunc("/books/popular", ah.Popular)

	// Reader surface
	dh := handlers.NewDashboardHandler(db, loans, notifications)
	reqh := handlers.NewRequestHandler(db, loans)
	nh := handlers.NewNotificationHandler(notifications)
	rah := handlers.NewRatingHandler(ratings)
	mux.Handle("/dashboard", reader(http.HandlerFunc(dh.Reader)))
	mux.Handle("/requests/submit", reader(http.HandlerFunc(reqh.Submit)))
	mux.Handle("/notifications", reader(http.HandlerFunc(nh.List)))
	mux.Handle("/notifications/read", reader(http.HandlerFunc(nh.MarkRead)))
	mux.Handle("/notifications/read-all", reader(http.HandlerFunc(nh.MarkAllRead)))
	mux.Handle("/ratings/submit", reader(http.HandlerFunc(rah.Submit)))

	// Admin surface
	ch := handlers.NewCategoryHandler(db)
	rh := handlers.NewReaderHandler(db)
	lh := handlers.NewLoanHandler(db, loans)
	mux.Handle("/admin/dashboard", admin(http.HandlerFunc(dh.Admin)))
	mux.Handle("/admin/books/create", admin(http.HandlerFunc(bh.Create)))
	mux.Handle("/admin/books/update", admin(http.HandlerFunc(bh.Update)))
	mux.Handle("/admin/books/delete", admin(http.HandlerFunc(bh.Delete)))
	mux.Handle("/admin/categories", admin(listOrCreate(ch.List, ch.Create)))
	mux.Handle("/admin/categories/delete", admin(http.HandlerFunc(ch.Delete)))
	mux.Handle("/admin/readers", admin(listOrCreate(rh.List, rh.Create)))
	mux.Handle("/admin/readers/details", admin(http.HandlerFunc(rh.Details)))
	mux.Handle("/admin/readers/update", admin(http.HandlerFunc(rh.Update)))
	mux.Handle("/admin/readers/delete", admin(http.HandlerFunc(rh.Delete)))
	mux.Handle("/admin/requests", admin(http.HandlerFunc(reqh.Pending)))
	mux.Handle("/admin/requests/approve", admin(http.HandlerFunc(reqh.Approve)))
	mux.Handle("/admin/requests/reject", admin(http.HandlerFunc(reqh.Reject)))
	mux.Handle("/admin/issues", admin(http.HandlerFunc(lh.Issues)))
	mux.Handle("/admin/issues/create", admin(http.HandlerFunc(lh.DirectIssue)))
	mux.Handle("/admin/issues/return", admin(http.HandlerFunc(lh.Return)))
	mux.Handle("/admin/issues/overdue", admin(http.HandlerFunc(lh.Overdue)))
	mux.Handle("/admin/fines", admin(http.HandlerFunc(lh.Fines)))
	mux.Handle("/admin/fines/pay", admin(http.HandlerFunc(lh.PayFine)))
	mux.Handle("/admin/analytics/series", admin(http.HandlerFunc(ah.Series)))

	// Uploaded covers
	mux.Handle("/covers/", http.StripPrefix("/covers/", http.FileServer(http.Dir(cfg.CoverDir))))

	// Root redirects to the catalog.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/books", http.StatusSeeOther)
	})

	return middleware.Recover(middleware.Logging(mux))
}

func reader(next http.Handler) http.Handler {
	return auth.Middleware(auth.RequireReader(next))
}

func admin(next http.Handler) http.Handler {
	return auth.Middleware(auth.RequireAdmin(next))
}

// listOrCreate dispatches GET to the list handler and POST to create.
func listOrCreate(list, create http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
}
