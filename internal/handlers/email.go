package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/felo/mailvault/internal/db"
	"github.com/go-chi/chi/v5"
)

// ViewEmail handles displaying a single email
func (h *Handlers) ViewEmail(w http.ResponseWriter, r *http.Request) {
	// Get email ID from URL
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid email ID", http.StatusBadRequest)
		return
	}

	// Get email with full content (parses from .eml file)
	email, err := h.db.GetEmailWithFullContent(id)
	if err != nil {
		log.Printf("Error loading email with full content: %v", err)
		http.Error(w, "Failed to load email", http.StatusInternalServerError)
		return
	}
	if email == nil {
		http.Error(w, "Email not found", http.StatusNotFound)
		return
	}

	// Render the sanitized HTML body; an email without an HTML row (text-only)
	// falls back to the plain-text body
	var safeHTML template.HTML
	body, err := h.renderer.Render(id)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.Printf("Error rendering email body: %v", err)
		http.Error(w, "Failed to render email", http.StatusInternalServerError)
		return
	}
	safeHTML = template.HTML(body)

	// Prepare template data
	pageTitle := "Email - mailvault"
	if email.Subject != "" {
		pageTitle = email.Subject + " - mailvault"
	}

	data := map[string]interface{}{
		"PageTitle":   pageTitle,
		"Email":       email,
		"SafeHTML":    safeHTML,
		"Attachments": email.Attachments,
	}

	// Render template
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "email.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
