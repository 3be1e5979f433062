package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/felo/mailvault/internal/indexer"
)

// Scan re-indexes the mail directory and reports counts as JSON
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	idx := indexer.NewIndexer(h.db, h.cfg.EmailsPath, false)
	result, err := idx.IndexAll()
	if err != nil {
		log.Printf("Indexing error: %v", err)
		http.Error(w, "Indexing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{
		"total":   result.TotalFound,
		"new":     result.NewIndexed,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}); err != nil {
		log.Printf("Error encoding scan result: %v", err)
	}
}

// Shutdown signals the main goroutine to stop the server gracefully
func (h *Handlers) Shutdown(w http.ResponseWriter, r *http.Request) {
	if h.sigChan == nil {
		http.Error(w, "Shutdown not available", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down"))

	h.sigChan <- os.Interrupt
}
