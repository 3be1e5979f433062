package indexer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/felo/mailvault/internal/db"
	"github.com/felo/mailvault/internal/parser"
	"github.com/felo/mailvault/internal/scanner"
)

// previewLimit bounds the stored body text used for FTS5 search
const previewLimit = 10 * 1024

// Indexer handles email indexing operations
type Indexer struct {
	db          *db.DB
	scanner     *scanner.Scanner
	emailsPath  string
	verbose     bool
	concurrency int
}

// NewIndexer creates a new indexer
func NewIndexer(database *db.DB, emailsPath string, verbose bool) *Indexer {
	return &Indexer{
		db:          database,
		scanner:     scanner.NewScanner(emailsPath),
		emailsPath:  emailsPath,
		verbose:     verbose,
		concurrency: runtime.NumCPU() * 2, // 2x CPUs for optimal I/O parallelism
	}
}

// WithConcurrency sets the number of concurrent workers
func (idx *Indexer) WithConcurrency(workers int) *Indexer {
	if workers < 1 {
		workers = 1
	}
	idx.concurrency = workers
	return idx
}

// IndexResult contains statistics about an indexing operation
type IndexResult struct {
	TotalFound  int
	NewIndexed  int
	Skipped     int
	Failed      int
	FailedFiles []string
}

// IndexAll scans and indexes all .eml files using concurrent workers
func (idx *Indexer) IndexAll() (*IndexResult, error) {
	files, err := idx.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan for files: %w", err)
	}

	result := &IndexResult{
		TotalFound:  len(files),
		FailedFiles: make([]string, 0),
	}

	if idx.verbose {
		log.Printf("Found %d .eml files to process with %d workers", result.TotalFound, idx.concurrency)
	}

	fileChan := make(chan string, len(files))
	resultChan := make(chan indexResult, len(files))

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < idx.concurrency; i++ {
		wg.Add(1)
		go idx.indexWorker(&wg, fileChan, resultChan)
	}

	for _, file := range files {
		fileChan <- file
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results
	processedCount := 0
	for res := range resultChan {
		processedCount++
		if idx.verbose && processedCount%10 == 0 {
			log.Printf("Processing file %d/%d...", processedCount, result.TotalFound)
		}

		switch res.status {
		case statusIndexed:
			result.NewIndexed++
		case statusSkipped:
			result.Skipped++
		case statusFailed:
			result.Failed++
			result.FailedFiles = append(result.FailedFiles, res.filePath)
		}
	}

	if idx.verbose {
		log.Printf("Indexing complete: %d new, %d skipped, %d failed",
			result.NewIndexed, result.Skipped, result.Failed)
	}

	return result, nil
}

type indexStatus int

const (
	statusIndexed indexStatus = iota
	statusSkipped
	statusFailed
)

type indexResult struct {
	filePath string
	status   indexStatus
}

// indexWorker processes files from the file channel
func (idx *Indexer) indexWorker(wg *sync.WaitGroup, fileChan <-chan string, resultChan chan<- indexResult) {
	defer wg.Done()

	for filePath := range fileChan {
		status := idx.processFile(filePath)
		resultChan <- indexResult{
			filePath: filePath,
			status:   status,
		}
	}
}

// processFile indexes a single file: metadata row, attachment rows, and the
// raw HTML body the render pipeline works from
func (idx *Indexer) processFile(relPath string) indexStatus {
	// Check if already indexed
	exists, err := idx.db.EmailExists(relPath)
	if err != nil {
		log.Printf("Error checking if email exists: %v", err)
		return statusFailed
	}
	if exists {
		return statusSkipped
	}

	absPath := filepath.Join(idx.emailsPath, filepath.FromSlash(relPath))

	// Parse the email
	parsed, err := parser.ParseEMLFile(absPath)
	if err != nil {
		log.Printf("Error parsing %s: %v", relPath, err)
		return statusFailed
	}

	fileInfo, err := os.Stat(absPath)
	if err != nil {
		log.Printf("Error getting file info for %s: %v", relPath, err)
		return statusFailed
	}

	preview := parsed.BodyText
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}

	email := &db.Email{
		FilePath:        relPath,
		MessageID:       parsed.MessageID,
		Subject:         parsed.Subject,
		Sender:          parsed.Sender,
		SenderName:      parsed.SenderName,
		Recipients:      strings.Join(parsed.Recipients, ", "),
		Date:            db.NullTime{Time: parsed.Date, Valid: !parsed.Date.IsZero()},
		BodyTextPreview: preview,
		HasAttachments:  len(parsed.Attachments) > 0,
		AttachmentCount: len(parsed.Attachments),
		FileSize:        fileInfo.Size(),
	}

	emailID, err := idx.db.InsertEmail(email)
	if err != nil {
		log.Printf("Error inserting email %s: %v", relPath, err)
		return statusFailed
	}

	// The raw HTML is stored once here and treated as immutable; the
	// sanitized column starts NULL and is filled lazily by the renderer
	if err := idx.db.InsertMessageHTML(emailID, parsed.BodyHTML); err != nil {
		log.Printf("Error storing html body for %s: %v", relPath, err)
		return statusFailed
	}

	for _, att := range parsed.Attachments {
		attachment := &db.Attachment{
			EmailID:     emailID,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        att.Size,
		}

		if _, err := idx.db.InsertAttachment(attachment); err != nil {
			log.Printf("Error inserting attachment for email %s: %v", relPath, err)
			// Continue even if attachment insertion fails
		}
	}

	return statusIndexed
}
