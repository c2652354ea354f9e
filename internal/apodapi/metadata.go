package apodapi

import (
	"strings"

	"apod/internal/services"
)

// MediaKind classifies the content published for a date.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Metadata is the validated APOD record for a single date.
type Metadata struct {
	Date         string    `json:"date"`
	Title        string    `json:"title"`
	Explanation  string    `json:"explanation"`
	MediaType    MediaKind `json:"media_type"`
	URL          string    `json:"url,omitempty"`
	HDURL        string    `json:"hdurl,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Copyright    string    `json:"copyright,omitempty"`
}

// wireMetadata mirrors the JSON payload; pointers distinguish missing fields
// from empty ones.
type wireMetadata struct {
	Date         string  `json:"date"`
	Title        *string `json:"title"`
	Explanation  *string `json:"explanation"`
	MediaType    *string `json:"media_type"`
	URL          string  `json:"url"`
	HDURL        string  `json:"hdurl"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Copyright    string  `json:"copyright"`
}

func (w wireMetadata) toMetadata() (*Metadata, error) {
	if w.Title == nil || strings.TrimSpace(*w.Title) == "" {
		return nil, services.Wrap(services.ErrRemote, "apodapi", "decode metadata", "missing title", nil)
	}
	if w.Explanation == nil {
		return nil, services.Wrap(services.ErrRemote, "apodapi", "decode metadata", "missing explanation", nil)
	}
	if w.MediaType == nil || strings.TrimSpace(*w.MediaType) == "" {
		return nil, services.Wrap(services.ErrRemote, "apodapi", "decode metadata", "missing media_type", nil)
	}
	return &Metadata{
		Date:         strings.TrimSpace(w.Date),
		Title:        *w.Title,
		Explanation:  *w.Explanation,
		MediaType:    MediaKind(strings.ToLower(strings.TrimSpace(*w.MediaType))),
		URL:          strings.TrimSpace(w.URL),
		HDURL:        strings.TrimSpace(w.HDURL),
		ThumbnailURL: strings.TrimSpace(w.ThumbnailURL),
		Copyright:    strings.TrimSpace(w.Copyright),
	}, nil
}

// ImageURL selects the downloadable still for the record: the high resolution
// image for image days (falling back to url when hdurl is absent) and the
// thumbnail for video days.
func (m *Metadata) ImageURL() (string, error) {
	switch m.MediaType {
	case MediaImage:
		if m.HDURL != "" {
			return m.HDURL, nil
		}
		if m.URL != "" {
			return m.URL, nil
		}
		return "", services.Wrap(services.ErrRemote, "apodapi", "select image", "image record has no hdurl or url", nil)
	case MediaVideo:
		if m.ThumbnailURL == "" {
			return "", services.Wrap(services.ErrRemote, "apodapi", "select image", "video record has no thumbnail_url", nil)
		}
		return m.ThumbnailURL, nil
	default:
		return "", services.Wrap(services.ErrUnsupportedMediaKind, "apodapi", "select image", string(m.MediaType), nil)
	}
}
