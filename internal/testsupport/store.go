package testsupport

import (
	"context"
	"testing"

	"apod/internal/config"
	"apod/internal/imagecache"
)

// MustOpenIndex opens the cache index for cfg and registers cleanup.
func MustOpenIndex(t testing.TB, cfg *config.Config) *imagecache.Index {
	t.Helper()

	index, err := imagecache.Open(context.Background(), cfg.Paths.CacheDir, nil)
	if err != nil {
		t.Fatalf("imagecache.Open: %v", err)
	}
	t.Cleanup(func() {
		index.Close()
	})
	return index
}

// InsertRecord adds a record directly to the index for tests.
func InsertRecord(t testing.TB, index *imagecache.Index, title, hash string) int64 {
	t.Helper()

	id, err := index.Insert(context.Background(), imagecache.NewRecord{
		Title:       title,
		Explanation: "explanation for " + title,
		Path:        imagecache.DerivePath(title, "https://example.test/"+hash+".jpg", index.Dir()),
		ContentHash: hash,
	})
	if err != nil {
		t.Fatalf("index.Insert: %v", err)
	}
	return id
}
