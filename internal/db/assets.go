package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Asset status values
const (
	AssetDownloaded = "downloaded"
	AssetFailed     = "failed"
	AssetSkipped    = "skipped"
)

// Asset records the outcome of one freeze attempt for one remote image URL.
// A downloaded asset always has StoragePath, SHA256 and Size set; failed and
// skipped assets carry only the Error reason.
type Asset struct {
	ID           string
	EmailID      int64
	OriginalURL  string
	Status       string
	StoragePath  sql.NullString
	ContentType  sql.NullString
	Size         sql.NullInt64
	SHA256       sql.NullString
	Error        sql.NullString
	DownloadedAt NullTime
}

// AssetID derives the synthetic asset id from the owning message and URL
func AssetID(emailID int64, originalURL string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(emailID, 10) + "\n" + originalURL))
	return hex.EncodeToString(sum[:])
}

// UpsertAsset inserts or replaces the record for (email_id, original_url).
// The unique key makes re-freeze attempts overwrite the previous outcome.
func (db *DB) UpsertAsset(a *Asset) error {
	if a.ID == "" {
		a.ID = AssetID(a.EmailID, a.OriginalURL)
	}

	_, err := db.Exec(`
		INSERT INTO assets (id, email_id, original_url, status, storage_path,
		                    content_type, size, sha256, error, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email_id, original_url) DO UPDATE SET
			status = excluded.status,
			storage_path = excluded.storage_path,
			content_type = excluded.content_type,
			size = excluded.size,
			sha256 = excluded.sha256,
			error = excluded.error,
			downloaded_at = excluded.downloaded_at
	`, a.ID, a.EmailID, a.OriginalURL, a.Status, a.StoragePath,
		a.ContentType, a.Size, a.SHA256, a.Error, a.DownloadedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert asset: %w", err)
	}
	return nil
}

// UpsertDownloadedAsset records a successful download
func (db *DB) UpsertDownloadedAsset(emailID int64, originalURL, storagePath, contentType, shaHex string, size int64) error {
	return db.UpsertAsset(&Asset{
		EmailID:      emailID,
		OriginalURL:  originalURL,
		Status:       AssetDownloaded,
		StoragePath:  sql.NullString{String: storagePath, Valid: true},
		ContentType:  sql.NullString{String: contentType, Valid: true},
		Size:         sql.NullInt64{Int64: size, Valid: true},
		SHA256:       sql.NullString{String: shaHex, Valid: true},
		DownloadedAt: NullTime{Time: time.Now(), Valid: true},
	})
}

// UpsertAssetOutcome records a failed or skipped freeze attempt with its reason
func (db *DB) UpsertAssetOutcome(emailID int64, originalURL, status, reason string) error {
	return db.UpsertAsset(&Asset{
		EmailID:     emailID,
		OriginalURL: originalURL,
		Status:      status,
		Error:       sql.NullString{String: reason, Valid: true},
	})
}

// GetDownloadedAsset returns the downloaded asset for (email_id, url), or nil
// if the URL has not been successfully frozen for that message
func (db *DB) GetDownloadedAsset(emailID int64, originalURL string) (*Asset, error) {
	a := &Asset{}
	err := db.QueryRow(`
		SELECT id, email_id, original_url, status, storage_path,
		       content_type, size, sha256, error, downloaded_at
		FROM assets
		WHERE email_id = ? AND original_url = ? AND status = 'downloaded'
	`, emailID, originalURL).Scan(
		&a.ID, &a.EmailID, &a.OriginalURL, &a.Status, &a.StoragePath,
		&a.ContentType, &a.Size, &a.SHA256, &a.Error, &a.DownloadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// GetAssetByID retrieves an asset by its synthetic id
func (db *DB) GetAssetByID(id string) (*Asset, error) {
	a := &Asset{}
	err := db.QueryRow(`
		SELECT id, email_id, original_url, status, storage_path,
		       content_type, size, sha256, error, downloaded_at
		FROM assets WHERE id = ?
	`, id).Scan(
		&a.ID, &a.EmailID, &a.OriginalURL, &a.Status, &a.StoragePath,
		&a.ContentType, &a.Size, &a.SHA256, &a.Error, &a.DownloadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// ListDownloadedAssets returns all downloaded assets for a message keyed by
// original URL. Used by the rewriter to substitute frozen images.
func (db *DB) ListDownloadedAssets(emailID int64) (map[string]*Asset, error) {
	rows, err := db.Query(`
		SELECT id, email_id, original_url, status, storage_path,
		       content_type, size, sha256, error, downloaded_at
		FROM assets
		WHERE email_id = ? AND status = 'downloaded'
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := make(map[string]*Asset)
	for rows.Next() {
		a := &Asset{}
		err := rows.Scan(
			&a.ID, &a.EmailID, &a.OriginalURL, &a.Status, &a.StoragePath,
			&a.ContentType, &a.Size, &a.SHA256, &a.Error, &a.DownloadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets[a.OriginalURL] = a
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}
