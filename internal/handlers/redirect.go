package handlers

import (
	"net/http"
	"net/url"
	"strings"
)

// GoRedirect is the outbound-link interstitial every rewritten anchor points
// at. Only http(s) targets are forwarded; anything else (javascript:, data:,
// file:) is refused here even if it somehow survived rewriting.
func (h *Handlers) GoRedirect(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	target, err := url.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid url parameter", http.StatusBadRequest)
		return
	}

	scheme := strings.ToLower(target.Scheme)
	if scheme != "http" && scheme != "https" {
		http.Error(w, "Refusing to redirect to non-http(s) URL", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, target.String(), http.StatusFound)
}
