package db

import (
	"fmt"
	"strings"
)

// EmailSearchResult represents a search result with snippet
type EmailSearchResult struct {
	Email
	Snippet string
}

// SearchEmails performs a full-text search on emails using FTS5
func (db *DB) SearchEmails(query string, limit int) ([]*EmailSearchResult, error) {
	if query == "" {
		// If no query, just return recent emails
		emails, err := db.ListEmails(limit, 0)
		if err != nil {
			return nil, err
		}

		results := make([]*EmailSearchResult, len(emails))
		for i, email := range emails {
			results[i] = &EmailSearchResult{
				Email:   *email,
				Snippet: truncateText(email.BodyTextPreview, 200),
			}
		}
		return results, nil
	}

	// Build FTS5 MATCH query with fuzzy matching
	// Add wildcards to each term: "john doe" -> "john* doe*"
	terms := strings.Fields(query)
	fuzzyTerms := make([]string, len(terms))
	for i, term := range terms {
		// Escape special FTS5 characters
		term = strings.ReplaceAll(term, `"`, `""`)
		fuzzyTerms[i] = term + "*"
	}
	fuzzyQuery := strings.Join(fuzzyTerms, " ")

	rows, err := db.Query(`
		SELECT
			e.id, e.file_path, e.message_id, e.subject, e.sender, e.sender_name,
			e.recipients, e.date, e.body_text_preview,
			e.has_attachments, e.attachment_count, e.file_size,
			e.indexed_at, e.updated_at,
			snippet(emails_fts, 4, '<mark>', '</mark>', '...', 32) as snippet
		FROM emails e
		JOIN emails_fts ON e.id = emails_fts.rowid
		WHERE emails_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, fuzzyQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	defer rows.Close()

	var results []*EmailSearchResult
	for rows.Next() {
		result := &EmailSearchResult{}
		err := rows.Scan(
			&result.ID, &result.FilePath, &result.MessageID, &result.Subject,
			&result.Sender, &result.SenderName, &result.Recipients, &result.Date,
			&result.BodyTextPreview, &result.HasAttachments, &result.AttachmentCount,
			&result.FileSize, &result.IndexedAt, &result.UpdatedAt,
			&result.Snippet,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

// truncateText truncates text to maxLen characters, appending "..." if cut
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
