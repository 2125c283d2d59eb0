package search

import (
	"strings"
	"time"

	"github.com/snaptag/gateway/models"
)

// Filters selects which album fields a query is matched against. Scopes are
// OR-combined: an album matches as soon as any enabled scope produces a hit.
type Filters struct {
	Titles       bool `json:"titles"`
	Descriptions bool `json:"descriptions"`
	Keywords     bool `json:"keywords"`
	Dates        bool `json:"dates"`
}

// DefaultFilters mirrors the search bar defaults: everything on except the
// date scope.
func DefaultFilters() Filters {
	return Filters{
		Titles:       true,
		Descriptions: true,
		Keywords:     true,
		Dates:        false,
	}
}

// Result is a filtered album list plus the flag the UI uses to tell "no
// albums exist" apart from "no albums match".
type Result struct {
	Albums         []models.Album
	NoResultsFound bool
}

// Filter applies a free-text query to an album list. An empty query is a
// no-op: the full list is returned in its original order. Matching is a
// case-insensitive substring check against every enabled scope; relative
// order of matching albums is preserved. The reference instant `now` is
// used to render the date scope the same way the album list displays it.
func Filter(albums []models.Album, query string, filters Filters, now time.Time) Result {
	if query == "" {
		return Result{Albums: albums}
	}

	term := strings.ToLower(query)
	matched := make([]models.Album, 0, len(albums))
	for _, album := range albums {
		if Matches(&album, term, filters, now) {
			matched = append(matched, album)
		}
	}

	return Result{
		Albums:         matched,
		NoResultsFound: len(matched) == 0,
	}
}

// Matches reports whether a single album hits any enabled scope. The term
// must already be lowercased. Missing fields (no name, no images, unparsable
// date) make that scope a non-match, never an error.
func Matches(album *models.Album, term string, filters Filters, now time.Time) bool {
	if filters.Titles && album.Name != "" &&
		strings.Contains(strings.ToLower(album.Name), term) {
		return true
	}

	if filters.Dates {
		if created, ok := album.CreatedTime(); ok {
			if strings.Contains(strings.ToLower(RelativeTime(created, now)), term) {
				return true
			}
		}
	}

	if len(album.Images) > 0 {
		if filters.Descriptions {
			for _, img := range album.Images {
				if img.Description != "" &&
					strings.Contains(strings.ToLower(img.Description), term) {
					return true
				}
			}
		}

		if filters.Keywords {
			for _, img := range album.Images {
				for _, kw := range img.Keywords {
					if strings.Contains(strings.ToLower(kw), term) {
						return true
					}
				}
			}
		}
	}

	return false
}
