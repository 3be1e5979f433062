package parser

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseEML_SimpleEmail tests parsing a basic plain text email
func TestParseEML_SimpleEmail(t *testing.T) {
	parsed, err := ParseEMLFile("testdata/simple.eml")

	require.NoError(t, err, "Should parse simple email without error")
	assert.Equal(t, "Simple Test Email", parsed.Subject)
	assert.Equal(t, "sender@example.com", parsed.Sender)
	assert.Equal(t, []string{"recipient@example.com"}, parsed.Recipients)
	assert.Contains(t, parsed.BodyText, "simple test email body")
	assert.Empty(t, parsed.BodyHTML)
	assert.Empty(t, parsed.Attachments)
	assert.Equal(t, "<simple123@example.com>", parsed.MessageID)
	assert.False(t, parsed.Date.IsZero())
}

// TestParseEML_HTMLWithRemoteImages tests that the HTML alternative survives
// parsing intact, remote image URLs included
func TestParseEML_HTMLWithRemoteImages(t *testing.T) {
	parsed, err := ParseEMLFile("testdata/html-remote-images.eml")

	require.NoError(t, err, "Should parse multipart/alternative email without error")
	assert.Equal(t, "Weekly Digest", parsed.Subject)
	assert.Contains(t, parsed.BodyText, "Plain text version")

	// The HTML body is stored raw; rewriting happens at render time
	assert.Contains(t, parsed.BodyHTML, "<h1>Weekly Digest</h1>")
	assert.Contains(t, parsed.BodyHTML, `src="https://cdn.example.com/banner.png"`)
	assert.Contains(t, parsed.BodyHTML, `src="https://tracker.example.net/pixel.gif"`)
	assert.Contains(t, parsed.BodyHTML, `href="https://example.com/story"`)
}

// TestParseEML_InlineCID tests that cid-referenced inline parts are captured
// separately from the message bodies
func TestParseEML_InlineCID(t *testing.T) {
	parsed, err := ParseEMLFile("testdata/inline-cid.eml")

	require.NoError(t, err, "Should parse multipart/related email without error")
	assert.Contains(t, parsed.BodyHTML, `src="cid:logo-1@example.com"`)

	require.Len(t, parsed.InlineParts, 1, "Should have exactly 1 inline part")
	part := parsed.InlineParts[0]
	assert.Equal(t, "logo-1@example.com", part.ContentID, "Content-ID should be normalized")
	assert.Equal(t, "image/png", part.ContentType)
	assert.NotEmpty(t, part.Data, "Inline part data should be decoded")

	// The inline part must not leak into the attachment list
	assert.Empty(t, parsed.Attachments)
}

// TestParseEML_InvalidFile tests error handling for non-existent files
func TestParseEML_InvalidFile(t *testing.T) {
	_, err := ParseEMLFile("testdata/does-not-exist.eml")

	assert.Error(t, err, "Should return error for non-existent file")
	assert.Contains(t, err.Error(), "failed to open file")
}

// TestNormalizeContentID tests Content-ID normalization forms
func TestNormalizeContentID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Angle brackets",
			input:    "<logo@example.com>",
			expected: "logo@example.com",
		},
		{
			name:     "Bare value",
			input:    "logo@example.com",
			expected: "logo@example.com",
		},
		{
			name:     "cid prefix",
			input:    "cid:logo@example.com",
			expected: "logo@example.com",
		},
		{
			name:     "Uppercase CID prefix",
			input:    "CID:logo@example.com",
			expected: "logo@example.com",
		},
		{
			name:     "Brackets and prefix",
			input:    "<cid:logo@example.com>",
			expected: "logo@example.com",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  <logo@example.com>  ",
			expected: "logo@example.com",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeContentID(tt.input))
		})
	}
}

// TestDecodeMIMEWord tests the MIME word decoder function
func TestDecodeMIMEWord(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "UTF-8 Quoted-Printable",
			input:    "=?UTF-8?Q?Invitaci=C3=B3n?=",
			expected: "Invitación",
		},
		{
			name:     "UTF-8 Base64",
			input:    "=?UTF-8?B?SW52aXRhY2nDs24=?=",
			expected: "Invitación",
		},
		{
			name:     "Plain text (no encoding)",
			input:    "Simple Subject",
			expected: "Simple Subject",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decodeMIMEWord(tt.input))
		})
	}
}

// TestParseEML_ComplexRecipients tests parsing emails with multiple recipients
func TestParseEML_ComplexRecipients(t *testing.T) {
	emlContent := `From: sender@example.com
To: recipient1@example.com, recipient2@example.com
Cc: cc1@example.com, cc2@example.com
Bcc: bcc1@example.com
Subject: Multiple Recipients Test
Date: Mon, 1 Jan 2024 10:00:00 +0000
Content-Type: text/plain; charset=utf-8

Test email with multiple recipients.
`

	tmpFile := "testdata/temp-multiple-recipients.eml"
	err := os.WriteFile(tmpFile, []byte(emlContent), 0644)
	require.NoError(t, err)
	defer os.Remove(tmpFile)

	parsed, err := ParseEMLFile(tmpFile)
	require.NoError(t, err)

	assert.Len(t, parsed.Recipients, 2, "Should have 2 To recipients")
	assert.Contains(t, parsed.Recipients, "recipient1@example.com")
	assert.Contains(t, parsed.Recipients, "recipient2@example.com")

	assert.Len(t, parsed.CC, 2, "Should have 2 CC recipients")
	assert.Len(t, parsed.BCC, 1, "Should have 1 BCC recipient")
}
