package render

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/felo/mailvault/internal/db"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer turns the stored raw HTML of a message into sanitized HTML that is
// safe to display inline, caching the result in the message_html row. The
// pipeline is rewrite -> sanitize -> promote; the three stages stay separate
// pure functions.
type Renderer struct {
	db     *db.DB
	policy *bluemonday.Policy
}

// New creates a Renderer backed by the given database
func New(database *db.DB) *Renderer {
	return &Renderer{
		db:     database,
		policy: NewPolicy(),
	}
}

// Sanitize applies the allow-list policy to the given HTML
func (r *Renderer) Sanitize(rawHTML string) string {
	return r.policy.Sanitize(rawHTML)
}

// Render returns the sanitized HTML body for a message, computing and caching
// it on first use. Returns db.ErrNotFound if the message has no HTML row.
//
// Two concurrent calls may both recompute and write the same deterministic
// result; that race is harmless and deliberately not locked against.
func (r *Renderer) Render(emailID int64) (string, error) {
	mh, err := r.db.GetMessageHTML(emailID)
	if err != nil {
		return "", err
	}
	if mh == nil {
		return "", fmt.Errorf("message html for email %d: %w", emailID, db.ErrNotFound)
	}

	// Cache hit
	if mh.HTMLSanitized.Valid && strings.TrimSpace(mh.HTMLSanitized.String) != "" {
		return mh.HTMLSanitized.String, nil
	}

	// Nothing to show
	if strings.TrimSpace(mh.HTMLRaw) == "" {
		return "", nil
	}

	finalized, err := r.compute(emailID, mh.HTMLRaw)
	if err != nil {
		return "", err
	}

	if err := r.db.UpdateHTMLSanitized(emailID, sql.NullString{String: finalized, Valid: true}); err != nil {
		return "", fmt.Errorf("failed to cache sanitized html: %w", err)
	}

	return finalized, nil
}

// compute runs the rewrite -> sanitize -> promote pipeline once
func (r *Renderer) compute(emailID int64, htmlRaw string) (string, error) {
	frozen, err := r.frozenAssets(emailID)
	if err != nil {
		return "", err
	}

	rewritten := Rewrite(htmlRaw, emailID, frozen)
	sanitized := r.policy.Sanitize(rewritten)
	return Promote(sanitized), nil
}

// frozenAssets maps each downloaded original URL to its asset id
func (r *Renderer) frozenAssets(emailID int64) (map[string]string, error) {
	downloaded, err := r.db.ListDownloadedAssets(emailID)
	if err != nil {
		return nil, err
	}

	frozen := make(map[string]string, len(downloaded))
	for originalURL, asset := range downloaded {
		frozen[originalURL] = asset.ID
	}
	return frozen, nil
}

var promoter = strings.NewReplacer(
	"data-safe-href=", "href=",
	"data-safe-src=", "src=",
)

// Promote renames the marker attributes back to live href/src. Only values
// that already passed the sanitizer's patterns occupy these attributes, so a
// textual rename is sufficient.
func Promote(sanitized string) string {
	return promoter.Replace(sanitized)
}
