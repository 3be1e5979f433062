package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAssetID tests that the synthetic id is stable and message-scoped
func TestAssetID(t *testing.T) {
	a := AssetID(1, "https://example.com/a.png")
	b := AssetID(1, "https://example.com/a.png")
	c := AssetID(2, "https://example.com/a.png")
	d := AssetID(1, "https://example.com/b.png")

	assert.Equal(t, a, b, "Same message and URL should give the same id")
	assert.NotEqual(t, a, c, "Different messages should give different ids")
	assert.NotEqual(t, a, d, "Different URLs should give different ids")
	assert.Len(t, a, 64, "Id should be a hex sha256")
}

// TestUpsertAssetOverwrites tests that one row exists per (message, URL)
func TestUpsertAssetOverwrites(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	id := InsertTestEmailWithHTML(t, db, "Asset email", "<p>x</p>")
	url := "https://example.com/pixel.png"

	// First attempt fails
	err := db.UpsertAssetOutcome(id, url, AssetFailed, "connection refused")
	require.NoError(t, err)

	// A later attempt succeeds and replaces the outcome
	err = db.UpsertDownloadedAsset(id, url, "/tmp/assets/1/abc.png", "image/png", "abc", 42)
	require.NoError(t, err)

	asset, err := db.GetDownloadedAsset(id, url)
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, AssetDownloaded, asset.Status)
	assert.Equal(t, "/tmp/assets/1/abc.png", asset.StoragePath.String)
	assert.Equal(t, int64(42), asset.Size.Int64)
	assert.True(t, asset.SHA256.Valid)
	assert.True(t, asset.DownloadedAt.Valid)

	// Only one row for the pair
	assets, err := db.ListDownloadedAssets(id)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

// TestDownloadedInvariant tests that failed/skipped rows never carry storage fields
func TestDownloadedInvariant(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	id := InsertTestEmailWithHTML(t, db, "Skip email", "<p>x</p>")

	err := db.UpsertAssetOutcome(id, "https://example.com/big.png", AssetSkipped, "asset exceeded max bytes")
	require.NoError(t, err)

	asset, err := db.GetAssetByID(AssetID(id, "https://example.com/big.png"))
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, AssetSkipped, asset.Status)
	assert.False(t, asset.StoragePath.Valid)
	assert.False(t, asset.SHA256.Valid)
	assert.False(t, asset.Size.Valid)
	assert.Equal(t, "asset exceeded max bytes", asset.Error.String)

	// Skipped rows are not surfaced as downloaded
	downloaded, err := db.GetDownloadedAsset(id, "https://example.com/big.png")
	require.NoError(t, err)
	assert.Nil(t, downloaded)
}

// TestListDownloadedAssets tests the URL-keyed map used by the rewriter
func TestListDownloadedAssets(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	id := InsertTestEmailWithHTML(t, db, "Multi asset", "<p>x</p>")

	require.NoError(t, db.UpsertDownloadedAsset(id, "https://example.com/a.png", "/tmp/a.png", "image/png", "aaa", 1))
	require.NoError(t, db.UpsertDownloadedAsset(id, "https://example.com/b.gif", "/tmp/b.gif", "image/gif", "bbb", 2))
	require.NoError(t, db.UpsertAssetOutcome(id, "https://example.com/c.png", AssetFailed, "timeout"))

	assets, err := db.ListDownloadedAssets(id)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Contains(t, assets, "https://example.com/a.png")
	assert.Contains(t, assets, "https://example.com/b.gif")
	assert.NotContains(t, assets, "https://example.com/c.png")
}
