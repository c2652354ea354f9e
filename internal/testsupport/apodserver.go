package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// APIPath is the metadata endpoint path served by APODServer.
const APIPath = "/planetary/apod"

// APODServer is an httptest server that mimics the APOD metadata endpoint and
// serves registered image bytes.
type APODServer struct {
	*httptest.Server

	mu       sync.Mutex
	records  map[string]map[string]any
	images   map[string][]byte
	requests map[string]int
	lastKey  string
}

// NewAPODServer starts a fake APOD server that is closed on test cleanup.
func NewAPODServer(t testing.TB) *APODServer {
	t.Helper()

	s := &APODServer{
		records:  make(map[string]map[string]any),
		images:   make(map[string][]byte),
		requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the metadata endpoint URL.
func (s *APODServer) APIURL() string {
	return s.URL + APIPath
}

// ImageURL returns the absolute URL for an image path.
func (s *APODServer) ImageURL(path string) string {
	return s.URL + path
}

// AddImage registers an image record for date whose hdurl serves data.
func (s *APODServer) AddImage(date, title, explanation, path string, data []byte) {
	s.AddRecord(date, map[string]any{
		"date":        date,
		"title":       title,
		"explanation": explanation,
		"media_type":  "image",
		"url":         s.ImageURL(path + ".small"),
		"hdurl":       s.ImageURL(path),
	})
	s.SetImage(path, data)
}

// AddVideo registers a video record for date whose thumbnail serves data.
func (s *APODServer) AddVideo(date, title, explanation, thumbPath string, data []byte) {
	s.AddRecord(date, map[string]any{
		"date":          date,
		"title":         title,
		"explanation":   explanation,
		"media_type":    "video",
		"url":           "https://www.youtube.com/embed/example",
		"thumbnail_url": s.ImageURL(thumbPath),
	})
	s.SetImage(thumbPath, data)
}

// AddRecord registers a raw metadata payload for date.
func (s *APODServer) AddRecord(date string, record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[date] = record
}

// SetImage registers bytes served at path.
func (s *APODServer) SetImage(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[path] = data
}

// Requests returns how many times path was requested.
func (s *APODServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// LastAPIKey returns the api_key sent with the most recent metadata request.
func (s *APODServer) LastAPIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastKey
}

func (s *APODServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.URL.Path]++
	s.mu.Unlock()

	if r.URL.Path == APIPath {
		s.handleMetadata(w, r)
		return
	}

	s.mu.Lock()
	data, ok := s.images[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
}

func (s *APODServer) handleMetadata(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := query.Get("api_key")
	date := query.Get("date")

	s.mu.Lock()
	s.lastKey = key
	record, ok := s.records[date]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if key == "" {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "API_KEY_MISSING", "message": "No api_key was supplied."},
		})
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 404,
			"msg":  fmt.Sprintf("No data available for date: %s", date),
		})
		return
	}
	_ = json.NewEncoder(w).Encode(record)
}
