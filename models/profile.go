package models

// Profile is the account snapshot shown on the profile page. Credits gate
// how many images the account may still submit for tagging.
type Profile struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Credits   int    `json:"credits"`
	CreatedAt string `json:"created_at,omitempty"`
}
