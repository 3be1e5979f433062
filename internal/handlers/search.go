package handlers

import (
	"fmt"
	"html"
	"log"
	"net/http"
)

// Search handles search requests
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := h.db.SearchEmails(query, 50)
	if err != nil {
		log.Printf("Search error: %v", err)
		http.Error(w, fmt.Sprintf("Search failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// Return HTML fragment for the search results panel
	if len(results) == 0 {
		fmt.Fprintf(w, `
			<div class="empty">
				<p>No emails found</p>
			</div>`)
		return
	}

	for _, result := range results {
		subject := result.Subject
		if subject == "" {
			subject = "(No Subject)"
		}

		snippet := result.Snippet

		fmt.Fprintf(w, `
			<div class="result">
				<a href="/email/%d">
					<h3>%s</h3>
					<span class="date">%s</span>
					<p class="sender">From: %s</p>
					<p class="snippet">%s</p>
				</a>
			</div>`,
			result.ID,
			html.EscapeString(subject),
			result.GetDate().Format("Jan 2, 2006 15:04"),
			html.EscapeString(result.Sender),
			snippet, // Already contains <mark> tags for highlighting
		)
	}
}
