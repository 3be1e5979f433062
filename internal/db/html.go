package db

import (
	"database/sql"
	"fmt"
)

// MessageHTML holds the HTML body for one message. HTMLRaw is written once at
// index time; HTMLSanitized is the render pipeline's cache and is NULL until
// the first render or after a freeze invalidates it.
type MessageHTML struct {
	EmailID       int64
	HTMLRaw       string
	HTMLSanitized sql.NullString
}

// InsertMessageHTML stores the raw HTML body for a message at index time
func (db *DB) InsertMessageHTML(emailID int64, htmlRaw string) error {
	_, err := db.Exec(`
		INSERT INTO message_html (email_id, html_raw)
		VALUES (?, ?)
		ON CONFLICT(email_id) DO NOTHING
	`, emailID, htmlRaw)
	if err != nil {
		return fmt.Errorf("failed to insert message html: %w", err)
	}
	return nil
}

// GetMessageHTML retrieves the HTML row for a message, or nil if none exists
func (db *DB) GetMessageHTML(emailID int64) (*MessageHTML, error) {
	mh := &MessageHTML{}
	err := db.QueryRow(`
		SELECT email_id, html_raw, html_sanitized
		FROM message_html WHERE email_id = ?
	`, emailID).Scan(&mh.EmailID, &mh.HTMLRaw, &mh.HTMLSanitized)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message html: %w", err)
	}
	return mh, nil
}

// UpdateHTMLSanitized writes the sanitized HTML cache for a message.
// Pass an invalid NullString to clear the cache.
func (db *DB) UpdateHTMLSanitized(emailID int64, sanitized sql.NullString) error {
	result, err := db.Exec(`
		UPDATE message_html SET html_sanitized = ? WHERE email_id = ?
	`, sanitized, emailID)
	if err != nil {
		return fmt.Errorf("failed to update sanitized html: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("message html for email %d: %w", emailID, ErrNotFound)
	}
	return nil
}

// ClearHTMLSanitized nulls the sanitized HTML cache so the next render
// recomputes it. Called by the freeze engine after any state change.
func (db *DB) ClearHTMLSanitized(emailID int64) error {
	return db.UpdateHTMLSanitized(emailID, sql.NullString{})
}
