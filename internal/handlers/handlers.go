package handlers

import (
	"net/http"
	"strconv"

	"github.com/pranaya890/LMS/internal/view"
)

// Explicit constant for 303 See Other (Post/Redirect/Get)
const statusSeeOther = 303

// renderTemplate uses the shared view.Render to ensure layout, partials,
// funcs, and caching.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name+".html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template error")); werr != nil {
			_ = werr
		}
	}
}

// formID reads a positive id from the query string or the posted form.
func formID(r *http.Request, field string) uint {
	v := r.URL.Query().Get(field)
	if v == "" {
		v = r.FormValue(field)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return uint(n)
}
