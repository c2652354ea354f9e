package imagecache

import (
	"database/sql"
	"time"
)

// Record is one indexed image.
type Record struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Explanation string    `json:"explanation"`
	Path        string    `json:"path"`
	ContentHash string    `json:"sha256"`
	Date        string    `json:"date,omitempty"`
	MediaType   string    `json:"media_type,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRecord carries the fields supplied on insert. The identifier and
// creation time are assigned by the Index.
type NewRecord struct {
	Title       string
	Explanation string
	Path        string
	ContentHash string
	Date        string
	MediaType   string
	SourceURL   string
}

const recordColumns = "id, title, explanation, path, sha256, apod_date, media_type, source_url, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		date      sql.NullString
		mediaType sql.NullString
		sourceURL sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Explanation,
		&rec.Path,
		&rec.ContentHash,
		&date,
		&mediaType,
		&sourceURL,
		&createdAt,
	); err != nil {
		return nil, err
	}
	rec.Date = date.String
	rec.MediaType = mediaType.String
	rec.SourceURL = sourceURL.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = ts
	}
	return &rec, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
