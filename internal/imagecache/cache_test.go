package imagecache_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"apod/internal/apodapi"
	"apod/internal/config"
	"apod/internal/imagecache"
	"apod/internal/services"
	"apod/internal/testsupport"
)

type cacheFixture struct {
	server *testsupport.APODServer
	index  *imagecache.Index
	fs     afero.Fs
	cache  *imagecache.Cache
	cfg    *config.Config
}

func newCacheFixture(t *testing.T) *cacheFixture {
	t.Helper()
	server := testsupport.NewAPODServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIServer(server))
	index := testsupport.MustOpenIndex(t, cfg)
	client, err := apodapi.New(cfg.API.APIKey, cfg.API.BaseURL, apodapi.WithTimeout(cfg.RequestTimeout()))
	if err != nil {
		t.Fatalf("apodapi.New: %v", err)
	}
	fs := afero.NewMemMapFs()
	return &cacheFixture{
		server: server,
		index:  index,
		fs:     fs,
		cache:  imagecache.New(index, client, imagecache.WithFs(fs)),
		cfg:    cfg,
	}
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := time.Parse(apodapi.DateLayout, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return date
}

func imageFiles(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestEnsureCachedIsIdempotent(t *testing.T) {
	f := newCacheFixture(t)
	data := []byte("galaxy bytes")
	f.server.AddImage("2022-10-10", " NGC #3521: Galaxy in a Bubble ", "A galaxy.", "/image/NGC3521.jpg", data)

	ctx := context.Background()
	first, err := f.cache.EnsureCached(ctx, mustDate(t, "2022-10-10"))
	if err != nil {
		t.Fatalf("first EnsureCached: %v", err)
	}
	if first.ID <= 0 || first.Outcome != imagecache.OutcomeAdded {
		t.Fatalf("unexpected first result %+v", first)
	}
	wantPath := filepath.Join(f.cfg.Paths.CacheDir, "NGC_3521_Galaxy_in_a_Bubble.jpg")
	if first.Path != wantPath {
		t.Fatalf("path = %q, want %q", first.Path, wantPath)
	}
	stored, err := afero.ReadFile(f.fs, wantPath)
	if err != nil {
		t.Fatalf("read cached image: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatalf("cached bytes differ from downloaded bytes")
	}

	second, err := f.cache.EnsureCached(ctx, mustDate(t, "2022-10-10"))
	if err != nil {
		t.Fatalf("second EnsureCached: %v", err)
	}
	if second.ID != first.ID || second.Outcome != imagecache.OutcomeAlreadyCached {
		t.Fatalf("expected already cached %d, got %+v", first.ID, second)
	}
	if files := imageFiles(t, f.fs, f.cfg.Paths.CacheDir); len(files) != 1 {
		t.Fatalf("expected one image file, got %v", files)
	}
	if got := f.server.Requests(testsupport.APIPath); got != 2 {
		t.Fatalf("expected metadata fetched on every call, got %d requests", got)
	}

	titles, err := f.index.ListTitles(ctx)
	if err != nil {
		t.Fatalf("ListTitles: %v", err)
	}
	if len(titles) != 1 || titles[0] != " NGC #3521: Galaxy in a Bubble " {
		t.Fatalf("unexpected titles %q", titles)
	}

	rec, err := f.index.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.ContentHash != imagecache.ContentHash(data) || rec.Explanation != "A galaxy." {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.SourceURL != f.server.ImageURL("/image/NGC3521.jpg") {
		t.Fatalf("expected hdurl as source, got %q", rec.SourceURL)
	}
}

func TestEnsureCachedSameBytesDifferentDates(t *testing.T) {
	f := newCacheFixture(t)
	data := []byte("repeat")
	f.server.AddImage("2020-01-01", "Repeat", "first run", "/image/a.jpg", data)
	f.server.AddImage("2021-01-01", "Repeat Again", "rerun", "/image/b.jpg", data)

	ctx := context.Background()
	a, err := f.cache.EnsureCached(ctx, mustDate(t, "2020-01-01"))
	if err != nil {
		t.Fatalf("EnsureCached a: %v", err)
	}
	b, err := f.cache.EnsureCached(ctx, mustDate(t, "2021-01-01"))
	if err != nil {
		t.Fatalf("EnsureCached b: %v", err)
	}
	if a.ID != b.ID || b.Outcome != imagecache.OutcomeAlreadyCached {
		t.Fatalf("expected shared record, got %+v and %+v", a, b)
	}
}

func TestEnsureCachedVideoUsesThumbnail(t *testing.T) {
	f := newCacheFixture(t)
	thumb := []byte("thumbnail bytes")
	f.server.AddVideo("2023-03-03", "Launch Video", "Rocket.", "/thumbs/launch.png", thumb)

	result, err := f.cache.EnsureCached(context.Background(), mustDate(t, "2023-03-03"))
	if err != nil {
		t.Fatalf("EnsureCached: %v", err)
	}
	if filepath.Base(result.Path) != "Launch_Video.png" {
		t.Fatalf("unexpected path %q", result.Path)
	}
	if f.server.Requests("/thumbs/launch.png") != 1 {
		t.Fatalf("expected thumbnail download")
	}
	if result.ContentHash != imagecache.ContentHash(thumb) {
		t.Fatalf("hash does not match thumbnail bytes")
	}
	rec, err := f.index.GetByID(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.MediaType != "video" {
		t.Fatalf("expected video media type, got %q", rec.MediaType)
	}
}

func TestEnsureCachedPathCollisionOverwrites(t *testing.T) {
	f := newCacheFixture(t)
	f.server.AddImage("2020-05-01", "Same Name", "old", "/image/one.jpg", []byte("old"))
	f.server.AddImage("2020-05-02", "Same Name", "new", "/image/two.jpg", []byte("new"))

	ctx := context.Background()
	first, err := f.cache.EnsureCached(ctx, mustDate(t, "2020-05-01"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.cache.EnsureCached(ctx, mustDate(t, "2020-05-02"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID == second.ID || first.Path != second.Path {
		t.Fatalf("expected distinct records sharing a path: %+v %+v", first, second)
	}
	stored, err := afero.ReadFile(f.fs, second.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(stored) != "new" {
		t.Fatalf("expected newest content on disk, got %q", stored)
	}
}

func TestEnsureCachedFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *cacheFixture)
		date  string
		kind  services.Kind
	}{
		{
			name:  "date not published",
			setup: func(*cacheFixture) {},
			date:  "2019-01-01",
			kind:  services.KindRemote,
		},
		{
			name: "missing title",
			setup: func(f *cacheFixture) {
				f.server.AddRecord("2019-02-02", map[string]any{
					"explanation": "no title", "media_type": "image", "url": f.server.ImageURL("/x.jpg"),
				})
			},
			date: "2019-02-02",
			kind: services.KindRemote,
		},
		{
			name: "unsupported media",
			setup: func(f *cacheFixture) {
				f.server.AddRecord("2019-03-03", map[string]any{
					"title": "Interactive", "explanation": "web page", "media_type": "other",
				})
			},
			date: "2019-03-03",
			kind: services.KindUnsupportedMediaKind,
		},
		{
			name: "video without thumbnail",
			setup: func(f *cacheFixture) {
				f.server.AddRecord("2019-04-04", map[string]any{
					"title": "Clip", "explanation": "video", "media_type": "video",
					"url": "https://www.youtube.com/embed/clip",
				})
			},
			date: "2019-04-04",
			kind: services.KindRemote,
		},
		{
			name: "image download fails",
			setup: func(f *cacheFixture) {
				f.server.AddRecord("2019-05-05", map[string]any{
					"title": "Gone", "explanation": "missing", "media_type": "image",
					"hdurl": f.server.ImageURL("/missing.jpg"),
				})
			},
			date: "2019-05-05",
			kind: services.KindDownload,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCacheFixture(t)
			tc.setup(f)
			result, err := f.cache.EnsureCached(context.Background(), mustDate(t, tc.date))
			if err == nil {
				t.Fatalf("expected error, got %+v", result)
			}
			if result != (imagecache.Result{}) {
				t.Fatalf("expected zero result, got %+v", result)
			}
			if kind := services.Classify(err); kind != tc.kind {
				t.Fatalf("kind = %q, want %q (%v)", kind, tc.kind, err)
			}
			titles, listErr := f.index.ListTitles(context.Background())
			if listErr != nil {
				t.Fatalf("ListTitles: %v", listErr)
			}
			if len(titles) != 0 {
				t.Fatalf("expected empty index, got %v", titles)
			}
		})
	}
}

func TestEnsureCachedWriteFailureLeavesIndexEmpty(t *testing.T) {
	server := testsupport.NewAPODServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIServer(server))
	index := testsupport.MustOpenIndex(t, cfg)
	client, err := apodapi.New(cfg.API.APIKey, cfg.API.BaseURL)
	if err != nil {
		t.Fatalf("apodapi.New: %v", err)
	}
	server.AddImage("2018-08-08", "Readonly", "no space", "/image/r.jpg", []byte("r"))

	cache := imagecache.New(index, client, imagecache.WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))
	_, err = cache.EnsureCached(context.Background(), mustDate(t, "2018-08-08"))
	if !errors.Is(err, services.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	titles, err := index.ListTitles(context.Background())
	if err != nil {
		t.Fatalf("ListTitles: %v", err)
	}
	if len(titles) != 0 {
		t.Fatalf("expected no records after failed write, got %v", titles)
	}
}

// stagingHookFs runs hook once, when the first temporary image file is opened.
type stagingHookFs struct {
	afero.Fs
	once sync.Once
	hook func()
}

func (h *stagingHookFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.HasSuffix(name, ".part") {
		h.once.Do(h.hook)
	}
	return h.Fs.OpenFile(name, flag, perm)
}

func TestEnsureCachedRecoversFromDuplicateInsert(t *testing.T) {
	server := testsupport.NewAPODServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIServer(server))
	index := testsupport.MustOpenIndex(t, cfg)
	client, err := apodapi.New(cfg.API.APIKey, cfg.API.BaseURL)
	if err != nil {
		t.Fatalf("apodapi.New: %v", err)
	}
	data := []byte("contended")
	server.AddImage("2016-06-06", "Contended", "another process wins", "/image/c.jpg", data)

	// Another process indexes the same bytes after our lookup but before our insert.
	var otherID int64
	var hookErr error
	fs := &stagingHookFs{Fs: afero.NewMemMapFs()}
	fs.hook = func() {
		other, err := imagecache.Open(context.Background(), cfg.Paths.CacheDir, nil)
		if err != nil {
			hookErr = err
			return
		}
		defer other.Close()
		otherID, hookErr = other.Insert(context.Background(), imagecache.NewRecord{
			Title:       "Contended",
			Path:        filepath.Join(cfg.Paths.CacheDir, "elsewhere.jpg"),
			ContentHash: imagecache.ContentHash(data),
		})
	}

	cache := imagecache.New(index, client, imagecache.WithFs(fs))
	result, err := cache.EnsureCached(context.Background(), mustDate(t, "2016-06-06"))
	if hookErr != nil {
		t.Fatalf("competing insert: %v", hookErr)
	}
	if err != nil {
		t.Fatalf("EnsureCached: %v", err)
	}
	if otherID <= 0 {
		t.Fatalf("competing insert did not run")
	}
	if result.ID != otherID || result.Outcome != imagecache.OutcomeAlreadyCached {
		t.Fatalf("expected already cached record %d, got %+v", otherID, result)
	}
	if result.Path != filepath.Join(cfg.Paths.CacheDir, "elsewhere.jpg") {
		t.Fatalf("expected existing record path, got %q", result.Path)
	}
	if files := imageFiles(t, fs, cfg.Paths.CacheDir); len(files) != 0 {
		t.Fatalf("expected no files written by the losing call, got %v", files)
	}
	titles, err := index.ListTitles(context.Background())
	if err != nil {
		t.Fatalf("ListTitles: %v", err)
	}
	if len(titles) != 1 {
		t.Fatalf("expected a single record, got %v", titles)
	}
}

func TestEnsureCachedConcurrentCallsShareRecord(t *testing.T) {
	f := newCacheFixture(t)
	f.server.AddImage("2017-07-07", "Parallel", "race", "/image/p.jpg", []byte("parallel"))

	const workers = 4
	date := mustDate(t, "2017-07-07")
	results := make(chan imagecache.Result, workers)
	errs := make(chan error, workers)
	for range workers {
		go func() {
			result, err := f.cache.EnsureCached(context.Background(), date)
			if err != nil {
				errs <- err
				return
			}
			results <- result
		}()
	}

	var ids []int64
	var added int
	for range workers {
		select {
		case err := <-errs:
			t.Fatalf("EnsureCached: %v", err)
		case result := <-results:
			ids = append(ids, result.ID)
			if result.Outcome == imagecache.OutcomeAdded {
				added++
			}
		}
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected one shared id, got %v", ids)
		}
	}
	if added != 1 {
		t.Fatalf("expected exactly one insert, got %d", added)
	}
}
