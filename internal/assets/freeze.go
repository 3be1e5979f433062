package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/felo/mailvault/internal/config"
	"github.com/felo/mailvault/internal/db"
	"github.com/felo/mailvault/internal/render"
)

const maxRedirects = 5

// Result aggregates the per-URL outcomes of one freeze call
type Result struct {
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Engine downloads the remote images a message references and stores them
// under content-addressed paths, so the message can be viewed without live
// fetches to sender-controlled hosts. Every fetch goes through the SSRF
// guard, including each redirect hop.
type Engine struct {
	db       *db.DB
	cfg      *config.Config
	renderer *render.Renderer
	client   *http.Client

	// guard validates a URL before fetching; swapped out in tests
	guard func(ctx context.Context, rawURL string) error
}

// NewEngine creates a freeze engine with a hardened HTTP client
func NewEngine(database *db.DB, cfg *config.Config, renderer *render.Renderer) *Engine {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConns:          4,
	}

	return &Engine{
		db:       database,
		cfg:      cfg,
		renderer: renderer,
		guard:    CheckRemoteURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
			// Redirects are followed, but every hop is re-validated by the
			// guard so a public host cannot bounce us to an internal one
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return CheckRemoteURL(req.Context(), req.URL.String())
			},
		},
	}
}

// Freeze downloads the remote images referenced by the message's raw HTML,
// records one asset row per URL, then clears the sanitized-HTML cache and
// re-renders so the frozen copies show up immediately.
// Returns db.ErrNotFound if the message has no HTML row.
func (e *Engine) Freeze(ctx context.Context, emailID int64) (*Result, error) {
	mh, err := e.db.GetMessageHTML(emailID)
	if err != nil {
		return nil, err
	}
	if mh == nil {
		return nil, fmt.Errorf("message html for email %d: %w", emailID, db.ErrNotFound)
	}

	result := &Result{}
	if strings.TrimSpace(mh.HTMLRaw) == "" {
		return result, nil
	}

	urls := render.ExtractRemoteImageURLs(mh.HTMLRaw)

	var totalBytes int64
	for i, rawURL := range urls {
		// Candidate cap: everything beyond it is skipped, in order
		if i >= e.cfg.MaxAssetsPerMessage {
			e.recordOutcome(emailID, rawURL, db.AssetSkipped, "per-message asset limit reached")
			result.Skipped++
			continue
		}

		// Idempotent re-freeze: already-downloaded URLs are not re-fetched
		existing, err := e.db.GetDownloadedAsset(emailID, rawURL)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		if totalBytes >= e.cfg.TotalMaxBytesPerMessage {
			e.recordOutcome(emailID, rawURL, db.AssetSkipped, "total bytes limit reached")
			result.Skipped++
			continue
		}

		size, outcome := e.download(ctx, emailID, rawURL, totalBytes)
		switch outcome {
		case db.AssetDownloaded:
			totalBytes += size
			result.Downloaded++
		case db.AssetFailed:
			result.Failed++
		case db.AssetSkipped:
			result.Skipped++
		}
	}

	// Stale sanitized HTML pointing at the placeholder must not survive a
	// freeze; recompute immediately so the UI reflects the frozen assets
	if err := e.db.ClearHTMLSanitized(emailID); err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if _, err := e.renderer.Render(emailID); err != nil {
		return nil, fmt.Errorf("failed to re-render after freeze: %w", err)
	}

	return result, nil
}

// download fetches one URL, persists its asset record, and returns the byte
// count (on success) plus the recorded status
func (e *Engine) download(ctx context.Context, emailID int64, rawURL string, totalBytes int64) (int64, string) {
	// Guard immediately before the fetch, not at extraction time
	if err := e.guard(ctx, rawURL); err != nil {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetSkipped, reasonOf(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetFailed, err.Error())
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetFailed, fmt.Sprintf("http status %d", resp.StatusCode))
	}

	contentType := baseContentType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetSkipped, "content-type is not image")
	}

	// Hard per-file ceiling: never buffer an unbounded response body
	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxAssetBytes+1))
	if err != nil {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetFailed, err.Error())
	}
	if int64(len(body)) > e.cfg.MaxAssetBytes {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetSkipped, "asset exceeded max bytes")
	}

	if totalBytes+int64(len(body)) > e.cfg.TotalMaxBytesPerMessage {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetSkipped, "total bytes limit reached")
	}

	sum := sha256.Sum256(body)
	shaHex := hex.EncodeToString(sum[:])

	dir := e.cfg.AssetDir(emailID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetFailed, err.Error())
	}

	storagePath := filepath.Join(dir, shaHex+"."+extensionFor(contentType))
	if err := os.WriteFile(storagePath, body, 0644); err != nil {
		return 0, e.recordOutcome(emailID, rawURL, db.AssetFailed, err.Error())
	}

	if err := e.db.UpsertDownloadedAsset(emailID, rawURL, storagePath, contentType, shaHex, int64(len(body))); err != nil {
		// The file is useless without its row; remove it so the store only
		// holds assets the database knows about
		if rmErr := os.Remove(storagePath); rmErr != nil {
			log.Printf("Error removing orphaned asset file %s: %v", storagePath, rmErr)
		}
		return 0, e.recordOutcome(emailID, rawURL, db.AssetFailed, err.Error())
	}

	return int64(len(body)), db.AssetDownloaded
}

// recordOutcome persists a failed/skipped record and passes the status through
func (e *Engine) recordOutcome(emailID int64, rawURL, status, reason string) string {
	if err := e.db.UpsertAssetOutcome(emailID, rawURL, status, reason); err != nil {
		log.Printf("Error recording asset outcome for %s: %v", rawURL, err)
	}
	return status
}

// reasonOf strips the "blocked: " sentinel prefix from a guard error
func reasonOf(err error) string {
	return strings.TrimPrefix(err.Error(), ErrBlocked.Error()+": ")
}

// baseContentType strips parameters and normalizes case
func baseContentType(ct string) string {
	parsed, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	return parsed
}

// extensionFor derives a filename extension from the content-type subtype,
// keeping alphanumerics only
func extensionFor(contentType string) string {
	_, subtype, found := strings.Cut(contentType, "/")
	if !found {
		return "bin"
	}

	var b strings.Builder
	for _, r := range subtype {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "bin"
	}
	return b.String()
}
