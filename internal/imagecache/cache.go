package imagecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"apod/internal/apodapi"
	"apod/internal/logging"
	"apod/internal/services"
)

// LockFileName guards the lookup-then-insert sequence across processes.
const LockFileName = "apod.lock"

const lockRetryDelay = 50 * time.Millisecond

// Outcome reports how EnsureCached satisfied a request.
type Outcome int

const (
	// OutcomeAdded means the image was downloaded, written, and indexed.
	OutcomeAdded Outcome = iota + 1
	// OutcomeAlreadyCached means a record with the same content hash existed.
	OutcomeAlreadyCached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeAlreadyCached:
		return "already_cached"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result describes a successful EnsureCached call. It is the zero value when
// an error is returned.
type Result struct {
	ID          int64   `json:"id"`
	Outcome     Outcome `json:"outcome"`
	Title       string  `json:"title"`
	Path        string  `json:"path"`
	ContentHash string  `json:"sha256"`
}

// Cache fetches APOD images and stores them in the content index.
type Cache struct {
	index    *Index
	source   apodapi.Source
	fs       afero.Fs
	logger   *slog.Logger
	mu       sync.Mutex
	fileLock *flock.Flock
}

// Option customizes a Cache.
type Option func(*Cache)

// WithFs sets the filesystem image files are written to.
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "imagecache")
		}
	}
}

// New builds a Cache over index that fetches from source.
func New(index *Index, source apodapi.Source, opts ...Option) *Cache {
	c := &Cache{
		index:  index,
		source: source,
		fs:     afero.NewOsFs(),
		logger: index.logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.fileLock = flock.New(filepath.Join(index.Dir(), LockFileName))
	return c
}

// EnsureCached makes sure the APOD image for date is stored and indexed and
// returns its record identifier. The remote service is always consulted so
// that the content hash of the current image decides whether a new record is
// needed.
func (c *Cache) EnsureCached(ctx context.Context, date time.Time) (Result, error) {
	ctx = ensureContext(ctx)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	ctx = services.WithDate(ctx, date.Format(apodapi.DateLayout))
	logger := logging.WithContext(ctx, c.logger)

	result, err := c.ensure(ctx, logger, date)
	if err != nil {
		kind := services.Classify(err)
		logging.ErrorWithContext(logger, "apod cache request failed", "cache_request_failed",
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.String(logging.FieldErrorHint, errorHint(kind)),
			logging.Error(err),
		)
		return Result{}, err
	}
	logger.Info("apod image cached",
		logging.String(logging.FieldEventType, "cache_request_completed"),
		logging.Int64(logging.FieldRecordID, result.ID),
		logging.String("outcome", result.Outcome.String()),
		logging.String("path", result.Path),
	)
	return result, nil
}

func (c *Cache) ensure(ctx context.Context, logger *slog.Logger, date time.Time) (Result, error) {
	meta, err := c.source.Metadata(ctx, date)
	if err != nil {
		return Result{}, err
	}
	imageURL, err := meta.ImageURL()
	if err != nil {
		return Result{}, err
	}
	logger.Debug("apod metadata received",
		logging.String("title", meta.Title),
		logging.String("media_type", string(meta.MediaType)),
		logging.String("image_url", imageURL),
	)

	data, err := c.source.Download(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}
	hash := ContentHash(data)

	unlock, err := c.lock(ctx)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	existing, err := c.index.FindByHash(ctx, hash)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return resultFromRecord(existing, OutcomeAlreadyCached), nil
	}

	target := DerivePath(meta.Title, imageURL, c.index.Dir())
	existed, err := afero.Exists(c.fs, target)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStorageUnavailable, "imagecache", "stat image", target, err)
	}
	if existed {
		logging.WarnWithContext(logger, "cache path already exists; overwriting with new content", "cache_path_collision",
			logging.String("path", target),
			logging.String("sha256", hash),
			logging.String(logging.FieldErrorHint, "distinct images share a derived file name"),
			logging.String(logging.FieldImpact, "earlier record now points at the new image file once this one is indexed"),
		)
	}
	tmpName, err := stageFile(c.fs, target, data)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStorageUnavailable, "imagecache", "write image", target, err)
	}

	// The image only replaces target once its record is inserted, and the
	// record only commits once the image is in place.
	placed := false
	id, err := c.index.InsertThen(ctx, NewRecord{
		Title:       meta.Title,
		Explanation: meta.Explanation,
		Path:        target,
		ContentHash: hash,
		Date:        meta.Date,
		MediaType:   string(meta.MediaType),
		SourceURL:   imageURL,
	}, func() error {
		if err := c.fs.Rename(tmpName, target); err != nil {
			return services.Wrap(services.ErrStorageUnavailable, "imagecache", "write image", target,
				fmt.Errorf("rename into place: %w", err))
		}
		placed = true
		return nil
	})
	if err != nil {
		if !placed {
			_ = c.fs.Remove(tmpName)
		} else if !existed {
			_ = c.fs.Remove(target)
		}
	}
	if errors.Is(err, ErrDuplicateHash) {
		rec, findErr := c.index.FindByHash(ctx, hash)
		if findErr != nil {
			return Result{}, findErr
		}
		if rec != nil {
			return resultFromRecord(rec, OutcomeAlreadyCached), nil
		}
	}
	if err != nil {
		return Result{}, err
	}
	return Result{
		ID:          id,
		Outcome:     OutcomeAdded,
		Title:       meta.Title,
		Path:        target,
		ContentHash: hash,
	}, nil
}

func (c *Cache) lock(ctx context.Context) (func(), error) {
	c.mu.Lock()
	locked, err := c.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		c.mu.Unlock()
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, services.Wrap(services.ErrStorageUnavailable, "imagecache", "lock cache", c.fileLock.Path(), err)
	}
	return func() {
		if unlockErr := c.fileLock.Unlock(); unlockErr != nil {
			c.logger.Debug("cache lock release failed", logging.Error(unlockErr))
		}
		c.mu.Unlock()
	}, nil
}

func resultFromRecord(rec *Record, outcome Outcome) Result {
	return Result{
		ID:          rec.ID,
		Outcome:     outcome,
		Title:       rec.Title,
		Path:        rec.Path,
		ContentHash: rec.ContentHash,
	}
}

// stageFile writes data to a temporary file beside target and returns the
// temporary file's name. The caller renames it into place or removes it.
func stageFile(fs afero.Fs, target string, data []byte) (string, error) {
	dir := filepath.Dir(target)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	tmp, err := afero.TempFile(fs, dir, ".apod-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := fs.Chmod(tmpName, 0o644); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = fs.Remove(tmpName)
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return tmpName, nil
}

func errorHint(kind services.Kind) string {
	switch kind {
	case services.KindRemote:
		return "check the api key and that the date has been published"
	case services.KindUnsupportedMediaKind:
		return "this date has no still image to cache"
	case services.KindDownload:
		return "check network access to the image host"
	case services.KindStorageUnavailable:
		return "check permissions and free space in the cache directory"
	case services.KindValidation:
		return "check the requested date"
	default:
		return "check logs for details"
	}
}
