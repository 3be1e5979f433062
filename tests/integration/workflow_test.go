package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/felo/mailvault/internal/assets"
	"github.com/felo/mailvault/internal/config"
	"github.com/felo/mailvault/internal/db"
	"github.com/felo/mailvault/internal/indexer"
	"github.com/felo/mailvault/internal/render"
	"github.com/felo/mailvault/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const htmlEmail = `From: newsletter@example.com
To: reader@example.com
Subject: Product Update
Date: Mon, 1 Jan 2024 10:00:00 +0000
Message-Id: <update1@example.com>
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="alt"

--alt
Content-Type: text/plain; charset=utf-8

Plain text product update.

--alt
Content-Type: text/html; charset=utf-8

<html><body>
<h1>Product Update</h1>
<p>See the <a href="https://example.com/changelog">changelog</a>.</p>
<img src="http://127.0.0.1/banner.png">
<img src="http://localhost/pixel.gif">
</body></html>

--alt--
`

const plainEmail = `From: colleague@example.com
To: reader@example.com
Subject: Meeting Notes
Date: Mon, 1 Jan 2024 11:00:00 +0000
Content-Type: text/plain; charset=utf-8

Notes from the planning meeting.
`

// TestEndToEndWorkflow walks the full pipeline: scan, index, render, freeze,
// re-render. The image URLs point at loopback hosts so the SSRF guard blocks
// every fetch, which is itself part of what the test verifies.
func TestEndToEndWorkflow(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "update.eml"), []byte(htmlEmail), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "notes.eml"), []byte(plainEmail), 0644))

	testDB, err := db.Open(":memory:")
	require.NoError(t, err, "Should open test database")
	defer testDB.Close()
	testDB.SetEmailsPath(tempDir)

	// Scan and index
	scan := scanner.NewScanner(tempDir)
	files, err := scan.Scan()
	require.NoError(t, err, "Should scan directory")
	assert.Len(t, files, 2, "Should find both test files")

	idx := indexer.NewIndexer(testDB, tempDir, false)
	result, err := idx.IndexAll()
	require.NoError(t, err, "Should index all emails")
	assert.Equal(t, 2, result.NewIndexed)
	assert.Equal(t, 0, result.Failed)

	count, err := testDB.CountEmails()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Locate the HTML email
	emails, err := testDB.ListEmails(10, 0)
	require.NoError(t, err)
	var htmlID int64
	for _, e := range emails {
		if e.Subject == "Product Update" {
			htmlID = e.ID
		}
	}
	require.NotZero(t, htmlID, "Indexed HTML email should be listed")

	// First render: anchors go through /go, remote images become placeholders
	renderer := render.New(testDB)
	rendered, err := renderer.Render(htmlID)
	require.NoError(t, err, "Should render sanitized HTML")

	// h1 is not on the element allow-list; the tag is stripped, its text kept
	assert.Contains(t, rendered, "Product Update")
	assert.NotContains(t, rendered, "<h1>")
	assert.Contains(t, rendered, `href="/go?url=https%3A%2F%2Fexample.com%2Fchangelog"`)
	assert.Contains(t, rendered, render.PlaceholderImagePath)
	assert.Contains(t, rendered, `data-original-src="http://127.0.0.1/banner.png"`)
	assert.NotContains(t, rendered, `src="http://127.0.0.1/banner.png"`)

	// Freeze: both image hosts are loopback, so the guard skips both
	cfg := config.Default()
	cfg.StorageDir = t.TempDir()
	engine := assets.NewEngine(testDB, cfg, renderer)

	freezeResult, err := engine.Freeze(context.Background(), htmlID)
	require.NoError(t, err, "Freeze should succeed even when every URL is blocked")
	assert.Equal(t, 0, freezeResult.Downloaded)
	assert.Equal(t, 0, freezeResult.Failed)
	assert.Equal(t, 2, freezeResult.Skipped)

	// The blocked outcomes are recorded with reasons
	blocked, err := testDB.GetAssetByID(db.AssetID(htmlID, "http://127.0.0.1/banner.png"))
	require.NoError(t, err)
	require.NotNil(t, blocked)
	assert.Equal(t, db.AssetSkipped, blocked.Status)
	assert.NotEmpty(t, blocked.Error.String)

	// Freeze re-rendered the cache; with no downloads the placeholders stay
	mh, err := testDB.GetMessageHTML(htmlID)
	require.NoError(t, err)
	require.True(t, mh.HTMLSanitized.Valid, "Freeze must leave a fresh sanitized body")
	assert.Contains(t, mh.HTMLSanitized.String, render.PlaceholderImagePath)

	// Search still works over the indexed preview text
	searchResults, err := testDB.SearchEmails("planning", 10)
	require.NoError(t, err)
	require.Len(t, searchResults, 1)
	assert.Equal(t, "Meeting Notes", searchResults[0].Subject)

	// Re-index skips everything
	result2, err := idx.IndexAll()
	require.NoError(t, err)
	assert.Equal(t, 0, result2.NewIndexed)
	assert.Equal(t, 2, result2.Skipped)
}

// TestWorkflow_InlinePartServing tests that a cid-referenced part indexed from
// disk can be fetched back through the database layer
func TestWorkflow_InlinePartServing(t *testing.T) {
	tempDir := t.TempDir()
	inlineEmail := "From: sender@example.com\r\n" +
		"To: reader@example.com\r\n" +
		"Subject: Inline Logo\r\n" +
		"Date: Mon, 1 Jan 2024 12:00:00 +0000\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/related; boundary=\"rel\"\r\n" +
		"\r\n" +
		"--rel\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Logo:</p><img src=\"cid:logo@example.com\">\r\n" +
		"\r\n" +
		"--rel\r\n" +
		"Content-Type: image/gif\r\n" +
		"Content-Id: <logo@example.com>\r\n" +
		"Content-Disposition: inline\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"R0lGODlhAQABAAAAACH5BAEKAAEALAAAAAABAAEAAAICTAEAOw==\r\n" +
		"\r\n" +
		"--rel--\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "inline.eml"), []byte(inlineEmail), 0644))

	testDB, err := db.Open(":memory:")
	require.NoError(t, err)
	defer testDB.Close()
	testDB.SetEmailsPath(tempDir)

	idx := indexer.NewIndexer(testDB, tempDir, false)
	result, err := idx.IndexAll()
	require.NoError(t, err)
	require.Equal(t, 1, result.NewIndexed)

	emails, err := testDB.ListEmails(1, 0)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	id := emails[0].ID

	// The rendered body points at the cid endpoint
	renderer := render.New(testDB)
	rendered, err := renderer.Render(id)
	require.NoError(t, err)
	assert.Contains(t, rendered, "/cid/logo@example.com")

	// And the part itself is retrievable
	data, contentType, err := testDB.GetInlinePartData(id, "logo@example.com")
	require.NoError(t, err, "Inline part should be retrievable by Content-ID")
	assert.Equal(t, "image/gif", contentType)
	assert.NotEmpty(t, data)
}

// TestWorkflow_ErrorRecovery tests that a corrupted file fails in isolation
func TestWorkflow_ErrorRecovery(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "valid.eml"), []byte(plainEmail), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "corrupted.eml"), []byte("not a valid email"), 0644))

	testDB, err := db.Open(":memory:")
	require.NoError(t, err)
	defer testDB.Close()
	testDB.SetEmailsPath(tempDir)

	idx := indexer.NewIndexer(testDB, tempDir, false)
	result, err := idx.IndexAll()
	require.NoError(t, err, "Indexer should handle errors gracefully")

	assert.Equal(t, 1, result.NewIndexed, "Should index valid email")
	assert.Equal(t, 1, result.Failed, "Should fail on corrupted email")

	count, err := testDB.CountEmails()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
