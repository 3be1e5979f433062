package db

import (
	"fmt"
	"testing"
	"time"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database
func CleanupTestDB(t *testing.T, db *DB) {
	t.Helper()

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close test database: %v", err)
	}
}

// CreateTestEmail creates a test email with default values
func CreateTestEmail(subject, sender, body string) *Email {
	return &Email{
		FilePath:        fmt.Sprintf("/test/%s.eml", subject),
		MessageID:       fmt.Sprintf("<%s@test.com>", subject),
		Subject:         subject,
		Sender:          sender,
		SenderName:      "Test Sender",
		Recipients:      "recipient@test.com",
		Date:            NullTime{Time: time.Now(), Valid: true},
		BodyTextPreview: body,
		HasAttachments:  false,
		AttachmentCount: 0,
		FileSize:        int64(len(body)),
	}
}

// CreateTestEmailWithDate creates a test email with a specific date
func CreateTestEmailWithDate(subject, sender, body string, date time.Time) *Email {
	email := CreateTestEmail(subject, sender, body)
	email.Date = NullTime{Time: date, Valid: true}
	return email
}

// InsertTestEmails inserts multiple test emails and returns them
func InsertTestEmails(t *testing.T, db *DB, emails []*Email) []*Email {
	t.Helper()

	for i, email := range emails {
		id, err := db.InsertEmail(email)
		if err != nil {
			t.Fatalf("Failed to insert test email %d: %v", i, err)
		}
		emails[i].ID = id
	}

	return emails
}

// InsertTestEmailWithHTML inserts one email together with its raw HTML body
func InsertTestEmailWithHTML(t *testing.T, db *DB, subject, htmlRaw string) int64 {
	t.Helper()

	id, err := db.InsertEmail(CreateTestEmail(subject, "sender@test.com", "plain text"))
	if err != nil {
		t.Fatalf("Failed to insert test email: %v", err)
	}
	if err := db.InsertMessageHTML(id, htmlRaw); err != nil {
		t.Fatalf("Failed to insert message html: %v", err)
	}
	return id
}
