// Package identity decides whether a save is a create or a rename-aware
// update by comparing the skill's current identity with the identity it
// had when the editing session started (or when it was last published).
package identity

import (
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// ErrAlreadyCaptured is returned when a prior identity is captured twice
var ErrAlreadyCaptured = errors.New("prior identity already captured")

// Resolution describes how a save must be sent to the store
type Resolution struct {
	IsUpdate        bool
	IdentityChanged bool
}

// Resolve compares current with prior. A nil prior always means create.
func Resolve(current skills.Identity, prior *skills.Identity) Resolution {
	if prior == nil {
		return Resolution{}
	}
	return Resolution{
		IsUpdate:        true,
		IdentityChanged: !current.Equal(*prior),
	}
}

// Tracker holds the prior identity for one editing session
type Tracker struct {
	prior *skills.Identity
}

// NewTracker returns a tracker with no prior identity
func NewTracker() *Tracker {
	return &Tracker{}
}

// Capture records the identity a skill was loaded with. It can only be
// called once per session; later edits never move the prior.
func (t *Tracker) Capture(id skills.Identity) error {
	if t.prior != nil {
		return errors.Wrapf(ErrAlreadyCaptured, "prior is %s", t.prior)
	}
	p := id
	t.prior = &p
	return nil
}

// Published replaces the prior with the identity the store just accepted, so
// the next save in the same session diffs against the published state.
func (t *Tracker) Published(id skills.Identity) {
	p := id
	t.prior = &p
}

// Prior returns a copy of the prior identity, if any
func (t *Tracker) Prior() (skills.Identity, bool) {
	if t.prior == nil {
		return skills.Identity{}, false
	}
	return *t.prior, true
}

// Resolve compares current against the tracked prior
func (t *Tracker) Resolve(current skills.Identity) Resolution {
	return Resolve(current, t.prior)
}
