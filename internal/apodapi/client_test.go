package apodapi_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apod/internal/apodapi"
	"apod/internal/services"
	"apod/internal/testsupport"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(apodapi.DateLayout, value)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestMetadataDecodesImageRecord(t *testing.T) {
	srv := testsupport.NewAPODServer(t)
	srv.AddImage("2022-05-08", " NGC #3521: Galaxy in a Bubble ", "Gorgeous spiral galaxy.", "/image/2205/NGC3521LRGBHaAPOD-20.jpg", []byte("jpeg"))

	client, err := apodapi.New("test-key", srv.APIURL())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	meta, err := client.Metadata(context.Background(), mustDate(t, "2022-05-08"))
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Title != " NGC #3521: Galaxy in a Bubble " {
		t.Fatalf("title should be preserved verbatim, got %q", meta.Title)
	}
	if meta.MediaType != apodapi.MediaImage {
		t.Fatalf("unexpected media type %q", meta.MediaType)
	}
	if srv.LastAPIKey() != "test-key" {
		t.Fatalf("api key not sent, got %q", srv.LastAPIKey())
	}
	url, err := meta.ImageURL()
	if err != nil {
		t.Fatalf("ImageURL: %v", err)
	}
	if url != srv.ImageURL("/image/2205/NGC3521LRGBHaAPOD-20.jpg") {
		t.Fatalf("expected hdurl, got %q", url)
	}
}

func TestMetadataMissingDateIsRemoteError(t *testing.T) {
	srv := testsupport.NewAPODServer(t)
	client, err := apodapi.New("k", srv.APIURL())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Metadata(context.Background(), mustDate(t, "2001-01-01"))
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !apodapi.IsNotPublished(err) {
		t.Fatalf("expected not-published detection for %v", err)
	}
}

func TestMetadataRejectsMalformedPayloads(t *testing.T) {
	tests := map[string]map[string]any{
		"missing title":       {"explanation": "x", "media_type": "image", "hdurl": "http://x/a.jpg"},
		"blank title":         {"title": "  ", "explanation": "x", "media_type": "image"},
		"missing explanation": {"title": "T", "media_type": "image"},
		"missing media type":  {"title": "T", "explanation": "x"},
	}
	for name, record := range tests {
		t.Run(name, func(t *testing.T) {
			srv := testsupport.NewAPODServer(t)
			srv.AddRecord("2020-01-01", record)
			client, err := apodapi.New("k", srv.APIURL())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = client.Metadata(context.Background(), mustDate(t, "2020-01-01"))
			if !errors.Is(err, services.ErrRemote) {
				t.Fatalf("expected remote error, got %v", err)
			}
		})
	}
}

func TestMetadataInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	t.Cleanup(srv.Close)

	client, err := apodapi.New("k", srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Metadata(context.Background(), mustDate(t, "2020-01-01")); !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestMetadataSendsThumbsFlag(t *testing.T) {
	var gotThumbs, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotThumbs = r.URL.Query().Get("thumbs")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"title":"T","explanation":"E","media_type":"video","thumbnail_url":"http://x/t.jpg"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := apodapi.New("k", srv.URL, apodapi.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	meta, err := client.Metadata(context.Background(), mustDate(t, "2021-03-04"))
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if gotThumbs != "true" || gotAccept != "application/json" {
		t.Fatalf("unexpected request: thumbs=%q accept=%q", gotThumbs, gotAccept)
	}
	if meta.Date != "2021-03-04" {
		t.Fatalf("expected requested date as fallback, got %q", meta.Date)
	}

	noThumbs, err := apodapi.New("k", srv.URL, apodapi.WithThumbs(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := noThumbs.Metadata(context.Background(), mustDate(t, "2021-03-04")); err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if gotThumbs != "" {
		t.Fatalf("expected no thumbs parameter, got %q", gotThumbs)
	}
}

func TestDownload(t *testing.T) {
	srv := testsupport.NewAPODServer(t)
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	srv.SetImage("/image/a.jpg", payload)

	client, err := apodapi.New("k", srv.APIURL())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := client.Download(context.Background(), srv.ImageURL("/image/a.jpg"))
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("unexpected bytes %v", data)
	}

	_, err = client.Download(context.Background(), srv.ImageURL("/image/missing.jpg"))
	if !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected download error, got %v", err)
	}
	if _, err := client.Download(context.Background(), ""); !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected download error for empty url, got %v", err)
	}
}

func TestNewRequiresKeyAndURL(t *testing.T) {
	if _, err := apodapi.New("", "https://api.nasa.gov/planetary/apod"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := apodapi.New("k", " "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
