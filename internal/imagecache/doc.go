// Package imagecache stores APOD images on disk and indexes them by content
// hash in SQLite.
//
// The Index owns the cache base directory and the image_cache.db database
// inside it. Records are keyed by the SHA-256 of the downloaded bytes, so the
// same picture is stored once no matter how many dates or titles point at it.
// Identifiers are assigned by SQLite AUTOINCREMENT and are never reused; 0 is
// never a valid identifier.
//
// Cache coordinates the APOD source with the Index: fetch metadata, pick the
// image URL for the media kind, download, fingerprint, and either return the
// existing record or write the file under DerivePath and insert a new record.
// The lookup-then-insert sequence runs under an in-process mutex and an
// apod.lock file lock so concurrent callers cannot index the same hash twice.
//
// Records are never updated or deleted and the cache has no size bound.
package imagecache
