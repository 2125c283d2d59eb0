package models

import "time"

// UntitledAlbumName is the display fallback for albums the tagging service
// returned without a name.
const UntitledAlbumName = "Untitled Album"

// Album is an album record as returned by the tagging service, including
// the per-image details the UI renders and searches across.
type Album struct {
	ID        string  `json:"album_id"`
	Name      string  `json:"album_name,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"` // ISO-8601, as sent by the service
	Images    []Image `json:"images"`
}

// DisplayName returns the album name, falling back to UntitledAlbumName
func (a *Album) DisplayName() string {
	if a.Name == "" {
		return UntitledAlbumName
	}
	return a.Name
}

// ImageCount is derived from the image list, never stored
func (a *Album) ImageCount() int {
	return len(a.Images)
}

// CreatedTime parses the service's ISO-8601 timestamp. The second return is
// false when the field is absent or malformed; callers treat that as
// "no date available" rather than an error.
func (a *Album) CreatedTime() (time.Time, bool) {
	if a.CreatedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, a.CreatedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Image is a single tagged image inside an album.
type Image struct {
	ID          string   `json:"image_id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	ImageLink   string   `json:"image_link,omitempty"`
}
