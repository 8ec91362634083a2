package domain

import (
	"strings"
	"time"
)

// Vote is an invitee's current slot selection. VoterKey is the storage key the
// vote was upserted under; Identity carries the raw fields the voter submitted.
type Vote struct {
	VoterKey   string      `json:"voter_key"`
	SlotStarts []time.Time `json:"slot_starts"`
	Identity   Identity    `json:"identity"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Identity struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Token string `json:"token,omitempty"`
}

// Key returns the dedup key for a voter: normalized email, else normalized
// display name, else the raw token.
func (id Identity) Key() string {
	if email := NormalizeEmail(id.Email); email != "" {
		return "email:" + email
	}
	if name := NormalizeName(id.Name); name != "" {
		return "name:" + name
	}
	return "token:" + id.Token
}

// IdentityKey falls back to the storage key when no identity field is set.
func (v Vote) IdentityKey() string {
	id := v.Identity
	if id.Token == "" {
		id.Token = v.VoterKey
	}
	return id.Key()
}

func (v Vote) Selects(start time.Time) bool {
	for _, s := range v.SlotStarts {
		if s.Equal(start) {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
