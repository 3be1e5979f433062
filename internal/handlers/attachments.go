package handlers

import (
	"errors"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/felo/mailvault/internal/db"
	"github.com/go-chi/chi/v5"
)

// downloadFilename makes an attachment filename safe to echo in a
// Content-Disposition header: no path components, no control characters or
// quotes, bounded length
func downloadFilename(name string) string {
	name = filepath.Base(name)

	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 || r == '"' || r == '\'' {
			return -1
		}
		return r
	}, name)

	if len(cleaned) > 255 {
		cleaned = cleaned[:255]
	}
	if cleaned == "" {
		return "download.bin"
	}
	return cleaned
}

// DownloadAttachment serves an attachment's bytes. Only metadata lives in the
// database; the payload is re-parsed from the message file on demand.
func (h *Handlers) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid attachment ID", http.StatusBadRequest)
		return
	}

	att, err := h.db.GetAttachmentByID(id)
	if err != nil {
		log.Printf("Error loading attachment %d: %v", id, err)
		http.Error(w, "Failed to load attachment", http.StatusInternalServerError)
		return
	}
	if att == nil {
		http.Error(w, "Attachment not found", http.StatusNotFound)
		return
	}

	data, err := h.db.GetAttachmentData(id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Attachment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error extracting attachment %d from message %d: %v", id, att.EmailID, err)
		http.Error(w, "Failed to load attachment data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{
			"filename": downloadFilename(att.Filename),
		}))
	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}
