package handlers

import (
	"net/http"

	"github.com/snaptag/gateway/models"
	"github.com/snaptag/gateway/workers"
)

type ProfileHandler struct {
	Refresher *workers.ProfileRefresher
}

type profileResponse struct {
	Profile   models.Profile `json:"profile"`
	FetchedAt int64          `json:"fetched_at"`
}

// GetProfile serves the cached account profile. ?force=1 asks for a
// refresh first, which the refresher may debounce.
func (ph *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("force") == "1" {
		if _, err := ph.Refresher.ForceRefresh(); err != nil {
			WriteServiceError(w, "refresh profile", err)
			return
		}
	}

	profile, fetchedAt, err := ph.Refresher.Profile()
	if profile == nil {
		if err != nil {
			WriteServiceError(w, "get profile", err)
			return
		}
		WriteAPIError(w, http.StatusServiceUnavailable, "not_ready", "Profile has not been fetched yet")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Profile:   *profile,
		FetchedAt: fetchedAt.Unix(),
	})
}
