package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInsertEmail tests inserting an email into the database
func TestInsertEmail(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	email := CreateTestEmail("Test Subject", "sender@test.com", "Test body content")

	id, err := db.InsertEmail(email)

	require.NoError(t, err, "Should insert email without error")
	assert.Greater(t, id, int64(0), "Should return valid ID")

	// Verify it was inserted
	retrieved, err := db.GetEmailByID(id)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, email.Subject, retrieved.Subject)
	assert.Equal(t, email.Sender, retrieved.Sender)
	assert.Equal(t, email.BodyTextPreview, retrieved.BodyTextPreview)
}

// TestEmailExists tests checking if an email exists by file path
func TestEmailExists(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	email := CreateTestEmail("Test Subject", "sender@test.com", "Test body")
	email.FilePath = "/unique/path/test.eml"

	// Should not exist initially
	exists, err := db.EmailExists(email.FilePath)
	require.NoError(t, err)
	assert.False(t, exists, "Email should not exist before insertion")

	// Insert email
	_, err = db.InsertEmail(email)
	require.NoError(t, err)

	// Should exist now
	exists, err = db.EmailExists(email.FilePath)
	require.NoError(t, err)
	assert.True(t, exists, "Email should exist after insertion")

	// Different path should not exist
	exists, err = db.EmailExists("/different/path.eml")
	require.NoError(t, err)
	assert.False(t, exists, "Different path should not exist")
}

// TestGetEmailByID tests retrieving an email by its ID
func TestGetEmailByID(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	email := CreateTestEmail("Test Subject", "sender@test.com", "Test body")
	id, err := db.InsertEmail(email)
	require.NoError(t, err)

	retrieved, err := db.GetEmailByID(id)

	require.NoError(t, err)
	require.NotNil(t, retrieved, "Should retrieve email")
	assert.Equal(t, id, retrieved.ID)
	assert.Equal(t, "Test Subject", retrieved.Subject)
	assert.Equal(t, "sender@test.com", retrieved.Sender)

	// Non-existent ID should return nil
	retrieved, err = db.GetEmailByID(99999)
	require.NoError(t, err)
	assert.Nil(t, retrieved, "Non-existent ID should return nil")
}

// TestListEmails tests listing emails with pagination
func TestListEmails(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	emails := []*Email{
		CreateTestEmailWithDate("Email 1", "sender1@test.com", "Body 1", time.Now().Add(-3*time.Hour)),
		CreateTestEmailWithDate("Email 2", "sender2@test.com", "Body 2", time.Now().Add(-2*time.Hour)),
		CreateTestEmailWithDate("Email 3", "sender3@test.com", "Body 3", time.Now().Add(-1*time.Hour)),
		CreateTestEmailWithDate("Email 4", "sender4@test.com", "Body 4", time.Now()),
	}

	InsertTestEmails(t, db, emails)

	// Most recent first
	listed, err := db.ListEmails(2, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Email 4", listed[0].Subject)
	assert.Equal(t, "Email 3", listed[1].Subject)

	// Pagination
	listed, err = db.ListEmails(2, 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Email 2", listed[0].Subject)

	// Count
	count, err := db.CountEmails()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

// TestSearchEmails tests FTS5 search with snippet highlighting
func TestSearchEmails(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	InsertTestEmails(t, db, []*Email{
		CreateTestEmail("Quarterly report", "alice@test.com", "The quarterly numbers are attached"),
		CreateTestEmail("Lunch plans", "bob@test.com", "Pizza on Friday?"),
	})

	results, err := db.SearchEmails("quarterly", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Quarterly report", results[0].Subject)

	// Prefix matching
	results, err = db.SearchEmails("quart", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// Empty query returns recent emails
	results, err = db.SearchEmails("", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// TestAttachments tests attachment metadata CRUD
func TestAttachments(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	email := CreateTestEmail("With attachment", "sender@test.com", "body")
	emailID, err := db.InsertEmail(email)
	require.NoError(t, err)

	attID, err := db.InsertAttachment(&Attachment{
		EmailID:     emailID,
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        1234,
	})
	require.NoError(t, err)

	atts, err := db.GetAttachmentsByEmailID(emailID)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "report.pdf", atts[0].Filename)

	att, err := db.GetAttachmentByID(attID)
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, int64(1234), att.Size)
}
