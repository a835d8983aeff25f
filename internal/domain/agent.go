package domain

import "time"

// Agent is a curated wallet whose trades the system tracks.
// Only verified, non-delisted agents participate in the update pipeline.
type Agent struct {
	Wallet      string    `json:"wallet"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Twitter     string    `json:"twitter,omitempty"`
	ProfileURL  string    `json:"external_profile_url,omitempty"`
	VerifiedAt  time.Time `json:"verified_at"`
	Delisted    bool      `json:"-"`
}
