package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/felo/mailvault/internal/db"
	"github.com/go-chi/chi/v5"
)

// MessageHTML serves the sanitized HTML body of a message
func (h *Handlers) MessageHTML(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}

	body, err := h.renderer.Render(id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error rendering message %d: %v", id, err)
		http.Error(w, "Failed to render message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write([]byte(body))
}

// FreezeMessage downloads the remote images a message references and reports
// aggregate counts. Individual URL failures never fail the call.
func (h *Handlers) FreezeMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}

	result, err := h.freezer.Freeze(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error freezing message %d: %v", id, err)
		http.Error(w, "Failed to freeze message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("Error encoding freeze result: %v", err)
	}
}

// ServeCID serves an inline image part by its Content-ID
func (h *Handlers) ServeCID(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	cid := chi.URLParam(r, "cid")

	data, contentType, err := h.db.GetInlinePartData(id, cid)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Inline part not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error loading inline part %q for message %d: %v", cid, id, err)
		http.Error(w, "Failed to load inline part", http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}

// ServeAsset serves a frozen remote image from content-addressed storage
func (h *Handlers) ServeAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	assetID := chi.URLParam(r, "assetID")

	asset, err := h.db.GetAssetByID(assetID)
	if err != nil {
		log.Printf("Error loading asset %s: %v", assetID, err)
		http.Error(w, "Failed to load asset", http.StatusInternalServerError)
		return
	}
	// The asset must belong to the message in the URL and be a completed
	// download with a storage path
	if asset == nil || asset.EmailID != id || asset.Status != db.AssetDownloaded || !asset.StoragePath.Valid {
		http.Error(w, "Asset not found", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(asset.StoragePath.String)
	if err != nil {
		log.Printf("Error reading asset file %s: %v", asset.StoragePath.String, err)
		http.Error(w, "Failed to read asset", http.StatusInternalServerError)
		return
	}

	contentType := "application/octet-stream"
	if asset.ContentType.Valid {
		contentType = asset.ContentType.String
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}

// messageID extracts the {id} URL parameter, writing a 400 on bad input
func messageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
