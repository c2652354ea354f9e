package imagecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"apod/internal/logging"
	"apod/internal/services"
)

// IndexFileName is the SQLite database created inside the cache directory.
const IndexFileName = "image_cache.db"

// ErrDuplicateHash is returned by Insert when the content hash is already indexed.
var ErrDuplicateHash = errors.New("content hash already indexed")

// Index is the persistent content index backed by SQLite.
type Index struct {
	db      *sql.DB
	dir     string
	path    string
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open creates the cache directory and index if they do not exist and
// connects to them. Opening an existing cache leaves its records untouched.
func Open(ctx context.Context, baseDir string, logger *slog.Logger) (*Index, error) {
	ctx = ensureContext(ctx)
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "imagecache", "open", "cache directory is empty", nil)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "create cache directory", baseDir, err)
	}

	dbPath := filepath.Join(baseDir, IndexFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "open index", dbPath, err)
	}
	// A single connection keeps the pragmas below in effect for every query.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "open index",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	index := &Index{
		db:      db,
		dir:     baseDir,
		path:    dbPath,
		logger:  logging.NewComponentLogger(logger, "imagecache"),
		nowFunc: time.Now,
	}
	if err := index.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "init schema", dbPath, err)
	}
	index.logger.Debug("cache index ready",
		logging.String("path", dbPath),
		logging.String(logging.FieldEventType, "cache_index_opened"),
	)
	return index, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

// Dir returns the cache base directory.
func (x *Index) Dir() string { return x.dir }

// Path returns the index database path.
func (x *Index) Path() string { return x.path }

// FindByHash returns the record with the given content hash, or nil when no
// record matches.
func (x *Index) FindByHash(ctx context.Context, hash string) (*Record, error) {
	ctx = ensureContext(ctx)
	hash = normalizeHash(hash)
	if hash == "" {
		return nil, nil
	}
	var rec *Record
	err := retryOnBusy(ctx, func() error {
		row := x.db.QueryRowContext(ctx,
			"SELECT "+recordColumns+" FROM images_info WHERE sha256 = ?", hash)
		var scanErr error
		rec, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "find by hash", hash, err)
	}
	return rec, nil
}

// Insert stores a new record and returns its identifier. A hash that is
// already indexed yields ErrDuplicateHash and leaves the index unchanged.
func (x *Index) Insert(ctx context.Context, rec NewRecord) (int64, error) {
	return x.InsertThen(ctx, rec, nil)
}

// InsertThen stores rec like Insert and runs place before the record is
// committed. When place fails the insert is rolled back and its error is
// returned unchanged, so a record becomes visible only after place succeeds.
func (x *Index) InsertThen(ctx context.Context, rec NewRecord, place func() error) (int64, error) {
	rec.ContentHash = normalizeHash(rec.ContentHash)
	switch {
	case strings.TrimSpace(rec.Title) == "":
		return 0, services.Wrap(services.ErrValidation, "imagecache", "insert", "title is required", nil)
	case strings.TrimSpace(rec.Path) == "":
		return 0, services.Wrap(services.ErrValidation, "imagecache", "insert", "path is required", nil)
	case rec.ContentHash == "":
		return 0, services.Wrap(services.ErrValidation, "imagecache", "insert", "content hash is required", nil)
	}

	tx, res, err := x.beginExec(ctx,
		`INSERT INTO images_info (title, explanation, path, sha256, apod_date, media_type, source_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title,
		rec.Explanation,
		rec.Path,
		rec.ContentHash,
		nullableString(rec.Date),
		nullableString(rec.MediaType),
		nullableString(rec.SourceURL),
		x.nowFunc().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateHash, rec.ContentHash)
		}
		return 0, services.Wrap(services.ErrStorageUnavailable, "imagecache", "insert", rec.ContentHash, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, services.Wrap(services.ErrStorageUnavailable, "imagecache", "insert", "read inserted id", err)
	}
	if place != nil {
		if err := place(); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, services.Wrap(services.ErrStorageUnavailable, "imagecache", "insert", "commit", err)
	}
	return id, nil
}

// GetByID returns the record with the given identifier. Identifiers that
// were never assigned, including 0, yield services.ErrNotFound.
func (x *Index) GetByID(ctx context.Context, id int64) (*Record, error) {
	ctx = ensureContext(ctx)
	if id <= 0 {
		return nil, services.Wrap(services.ErrNotFound, "imagecache", "get by id", fmt.Sprintf("id %d", id), nil)
	}
	var rec *Record
	err := retryOnBusy(ctx, func() error {
		row := x.db.QueryRowContext(ctx,
			"SELECT "+recordColumns+" FROM images_info WHERE id = ?", id)
		var scanErr error
		rec, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "imagecache", "get by id", fmt.Sprintf("id %d", id), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "get by id", fmt.Sprintf("id %d", id), err)
	}
	return rec, nil
}

// ListTitles returns every indexed title in identifier order.
func (x *Index) ListTitles(ctx context.Context) ([]string, error) {
	records, err := x.List(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(records))
	for _, rec := range records {
		titles = append(titles, rec.Title)
	}
	return titles, nil
}

// List returns every record in identifier order.
func (x *Index) List(ctx context.Context) ([]Record, error) {
	ctx = ensureContext(ctx)
	var records []Record
	err := retryOnBusy(ctx, func() error {
		records = records[:0]
		rows, err := x.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM images_info ORDER BY id")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, *rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "list", "", err)
	}
	return records, nil
}
