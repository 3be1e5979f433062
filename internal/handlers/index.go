package handlers

import (
	"log"
	"net/http"
)

// Index handles the home page
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	// Get recent emails
	emails, err := h.db.ListEmails(50, 0)
	if err != nil {
		http.Error(w, "Failed to load emails", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"PageTitle": "Email List - mailvault",
		"Stats":     stats,
		"Emails":    emails,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
