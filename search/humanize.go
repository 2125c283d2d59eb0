package search

import (
	"time"

	"github.com/dustin/go-humanize"
)

// RelativeTime renders a timestamp as the coarse relative phrase shown in
// the album list, e.g. "3 days ago". The date search scope matches against
// this exact phrase so results stay explainable to the user; both sides
// must go through this function.
func RelativeTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
