package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/felo/mailvault/internal/parser"
)

// NullTime is a custom type that handles both string and time.Time from SQLite
type NullTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner for NullTime
func (nt *NullTime) Scan(value interface{}) error {
	if value == nil {
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	}

	switch v := value.(type) {
	case time.Time:
		nt.Time, nt.Valid = v, true
		return nil
	case string:
		// Try multiple time formats
		formats := []string{
			time.RFC3339,
			time.RFC3339Nano,
			// SQLite timestamp formats including Go's time.String() format
			"2006-01-02 15:04:05.999999999 -0700 -0700",
			"2006-01-02 15:04:05 -0700 -0700",
			"2006-01-02 15:04:05.999999999 -0700 MST",
			"2006-01-02 15:04:05 -0700 MST",
			"2006-01-02 15:04:05.999999999 -0700",
			"2006-01-02 15:04:05 -0700",
			"2006-01-02 15:04:05.999999999",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05Z",
			time.RFC1123Z,
			time.RFC1123,
		}

		var t time.Time
		var err error
		for _, format := range formats {
			t, err = time.Parse(format, v)
			if err == nil {
				nt.Time, nt.Valid = t, true
				return nil
			}
		}

		return fmt.Errorf("failed to parse time string %q: %w", v, err)
	default:
		return fmt.Errorf("unsupported Scan type for NullTime: %T", value)
	}
}

// Value implements driver.Valuer for NullTime
func (nt NullTime) Value() (driver.Value, error) {
	if !nt.Valid {
		return nil, nil
	}
	return nt.Time, nil
}

// Email represents an email record in the database (metadata only)
// Full content (body_html, raw_headers, cc, bcc) is parsed from .eml file on-demand
type Email struct {
	ID              int64
	FilePath        string
	MessageID       string
	Subject         string
	Sender          string
	SenderName      string
	Recipients      string
	Date            NullTime
	BodyTextPreview string // First 10KB for FTS5 search only
	HasAttachments  bool
	AttachmentCount int
	FileSize        int64
	IndexedAt       NullTime
	UpdatedAt       NullTime
}

// GetDate returns the date as time.Time, or zero time if NULL
func (e *Email) GetDate() time.Time {
	if e.Date.Valid {
		return e.Date.Time
	}
	return time.Time{}
}

// EmailWithContent represents a full email with all content parsed from .eml file
type EmailWithContent struct {
	*Email
	BodyText    string
	BodyHTML    string
	CC          []string
	BCC         []string
	RawHeaders  string
	Attachments []*Attachment
}

// Attachment represents an email attachment (metadata only)
// Actual attachment data is extracted from .eml file on-demand
type Attachment struct {
	ID          int64
	EmailID     int64
	Filename    string
	ContentType string
	Size        int64
}

// InsertEmail inserts a new email into the database (metadata only)
func (db *DB) InsertEmail(email *Email) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO emails (
			file_path, message_id, subject, sender, sender_name, recipients, date,
			body_text_preview, has_attachments, attachment_count, file_size
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		email.FilePath, email.MessageID, email.Subject, email.Sender, email.SenderName,
		email.Recipients, email.Date, email.BodyTextPreview,
		email.HasAttachments, email.AttachmentCount, email.FileSize,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert email: %w", err)
	}

	return result.LastInsertId()
}

// EmailExists checks if an email with the given file path already exists
func (db *DB) EmailExists(filePath string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM emails WHERE file_path = ?)", filePath).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// GetEmailByID retrieves an email by its ID (metadata only)
func (db *DB) GetEmailByID(id int64) (*Email, error) {
	email := &Email{}
	err := db.QueryRow(`
		SELECT id, file_path, message_id, subject, sender, sender_name, recipients, date,
		       body_text_preview, has_attachments, attachment_count, file_size,
		       indexed_at, updated_at
		FROM emails WHERE id = ?
	`, id).Scan(
		&email.ID, &email.FilePath, &email.MessageID, &email.Subject, &email.Sender,
		&email.SenderName, &email.Recipients, &email.Date, &email.BodyTextPreview,
		&email.HasAttachments, &email.AttachmentCount, &email.FileSize,
		&email.IndexedAt, &email.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return email, nil
}

// ListEmails retrieves the most recent emails with pagination (metadata only)
func (db *DB) ListEmails(limit, offset int) ([]*Email, error) {
	rows, err := db.Query(`
		SELECT id, file_path, message_id, subject, sender, sender_name, recipients, date,
		       body_text_preview, has_attachments, attachment_count, file_size,
		       indexed_at, updated_at
		FROM emails
		ORDER BY date DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	defer rows.Close()

	var emails []*Email
	for rows.Next() {
		email := &Email{}
		err := rows.Scan(
			&email.ID, &email.FilePath, &email.MessageID, &email.Subject, &email.Sender,
			&email.SenderName, &email.Recipients, &email.Date, &email.BodyTextPreview,
			&email.HasAttachments, &email.AttachmentCount, &email.FileSize,
			&email.IndexedAt, &email.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, email)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emails: %w", err)
	}

	return emails, nil
}

// CountEmails returns the total number of emails
func (db *DB) CountEmails() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM emails").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return count, nil
}

// InsertAttachment inserts an attachment into the database (metadata only)
func (db *DB) InsertAttachment(att *Attachment) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO attachments (email_id, filename, content_type, size)
		VALUES (?, ?, ?, ?)
	`, att.EmailID, att.Filename, att.ContentType, att.Size)
	if err != nil {
		return 0, fmt.Errorf("failed to insert attachment: %w", err)
	}

	return result.LastInsertId()
}

// GetAttachmentsByEmailID retrieves all attachments for an email (metadata only)
func (db *DB) GetAttachmentsByEmailID(emailID int64) ([]*Attachment, error) {
	rows, err := db.Query(`
		SELECT id, email_id, filename, content_type, size
		FROM attachments WHERE email_id = ?
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*Attachment
	for rows.Next() {
		att := &Attachment{}
		err := rows.Scan(&att.ID, &att.EmailID, &att.Filename, &att.ContentType, &att.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, att)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}

// GetAttachmentByID retrieves a single attachment by ID (metadata only)
func (db *DB) GetAttachmentByID(id int64) (*Attachment, error) {
	att := &Attachment{}
	err := db.QueryRow(`
		SELECT id, email_id, filename, content_type, size
		FROM attachments WHERE id = ?
	`, id).Scan(&att.ID, &att.EmailID, &att.Filename, &att.ContentType, &att.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return att, nil
}

// EmailsExistBatch checks which emails already exist in the database
// Returns a map of file paths to their existence status
func (db *DB) EmailsExistBatch(filePaths []string) (map[string]bool, error) {
	if len(filePaths) == 0 {
		return map[string]bool{}, nil
	}

	result := make(map[string]bool, len(filePaths))

	// SQLite has a limit on the number of variables in a query (default 999)
	chunkSize := 500
	for i := 0; i < len(filePaths); i += chunkSize {
		end := i + chunkSize
		if end > len(filePaths) {
			end = len(filePaths)
		}

		if err := db.checkExistenceChunk(filePaths[i:end], result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// checkExistenceChunk checks a chunk of file paths for existence
func (db *DB) checkExistenceChunk(filePaths []string, result map[string]bool) error {
	if len(filePaths) == 0 {
		return nil
	}

	query := "SELECT file_path FROM emails WHERE file_path IN (?" +
		strings.Repeat(",?", len(filePaths)-1) + ")"

	args := make([]interface{}, len(filePaths))
	for i, fp := range filePaths {
		args[i] = fp
		result[fp] = false
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to check email existence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var filePath string
		if err := rows.Scan(&filePath); err != nil {
			return fmt.Errorf("failed to scan file path: %w", err)
		}
		result[filePath] = true
	}

	return rows.Err()
}

// Stats holds database statistics
type Stats struct {
	TotalEmails     int
	WithAttachments int
	FrozenAssets    int
}

// GetStats returns current database statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.QueryRow("SELECT COUNT(*) FROM emails").Scan(&stats.TotalEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM emails WHERE has_attachments = 1").Scan(&stats.WithAttachments)
	if err != nil {
		return nil, fmt.Errorf("failed to count emails with attachments: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM assets WHERE status = 'downloaded'").Scan(&stats.FrozenAssets)
	if err != nil {
		return nil, fmt.Errorf("failed to count frozen assets: %w", err)
	}

	return stats, nil
}

// GetEmailWithFullContent retrieves an email and parses full content from .eml file
// This is used when viewing an email to get body_text, raw_headers, cc, bcc, etc.
func (db *DB) GetEmailWithFullContent(id int64) (*EmailWithContent, error) {
	// First get metadata from database
	email, err := db.GetEmailByID(id)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, nil
	}

	// Resolve relative path to absolute path
	absolutePath := db.ResolveEmailPath(email.FilePath)

	// Parse full content from .eml file
	parsed, err := parser.ParseEMLFile(absolutePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse .eml file %s: %w", absolutePath, err)
	}

	// Get attachment metadata from database
	attachments, err := db.GetAttachmentsByEmailID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}

	return &EmailWithContent{
		Email:       email,
		BodyText:    parsed.BodyText,
		BodyHTML:    parsed.BodyHTML,
		CC:          parsed.CC,
		BCC:         parsed.BCC,
		RawHeaders:  parsed.RawHeaders,
		Attachments: attachments,
	}, nil
}

// GetAttachmentData retrieves attachment data by parsing the .eml file
func (db *DB) GetAttachmentData(attachmentID int64) ([]byte, error) {
	// Get attachment metadata
	att, err := db.GetAttachmentByID(attachmentID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, fmt.Errorf("attachment: %w", ErrNotFound)
	}

	// Get email to find the .eml file path
	email, err := db.GetEmailByID(att.EmailID)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, fmt.Errorf("email for attachment: %w", ErrNotFound)
	}

	absolutePath := db.ResolveEmailPath(email.FilePath)

	parsed, err := parser.ParseEMLFile(absolutePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse .eml file %s: %w", absolutePath, err)
	}

	// Find the matching attachment by filename
	for _, parsedAtt := range parsed.Attachments {
		if parsedAtt.Filename == att.Filename {
			return parsedAtt.Data, nil
		}
	}

	return nil, fmt.Errorf("attachment %s not found in .eml file", att.Filename)
}

// GetInlinePartData retrieves an inline MIME part by Content-ID by parsing the
// .eml file. The cid is matched without surrounding angle brackets.
func (db *DB) GetInlinePartData(emailID int64, cid string) ([]byte, string, error) {
	email, err := db.GetEmailByID(emailID)
	if err != nil {
		return nil, "", err
	}
	if email == nil {
		return nil, "", fmt.Errorf("email: %w", ErrNotFound)
	}

	absolutePath := db.ResolveEmailPath(email.FilePath)

	parsed, err := parser.ParseEMLFile(absolutePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse .eml file %s: %w", absolutePath, err)
	}

	for _, part := range parsed.InlineParts {
		if part.ContentID == cid {
			return part.Data, part.ContentType, nil
		}
	}

	return nil, "", fmt.Errorf("inline part %q: %w", cid, ErrNotFound)
}
