// Package lifecycle implements the bot editing wizard: the Build, Design,
// Configure and Deploy stages, their guards, and the create-or-modify save
// that publishes a bot to the content store.
package lifecycle

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcms/pkg/identity"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

var (
	// ErrNotLoaded is returned by transitions on a session that is still loading
	ErrNotLoaded = errors.New("session is still loading")
	// ErrAlreadyLoaded is returned when a session is hydrated twice
	ErrAlreadyLoaded = errors.New("session is already loaded")
	// ErrDeployLocked is returned when Deploy is requested before any successful save
	ErrDeployLocked = errors.New("deploy is locked until the bot has been saved")
	// ErrAtFirstStage is returned by Back on the Build stage
	ErrAtFirstStage = errors.New("already at the first stage")
	// ErrAtLastStage is returned by Next on the Deploy stage
	ErrAtLastStage = errors.New("already at the last stage")
	// ErrSaveInProgress is returned when a save is started while another is running
	ErrSaveInProgress = errors.New("a save is already in progress")
	// ErrNotAtConfigure is returned when a save is started before the session reached Configure
	ErrNotAtConfigure = errors.New("bots can only be saved from the Configure stage")
)

// TransitionHook is called when the session enters or leaves Configure
type TransitionHook func(from, to Stage)

// Session is the state of one editing session. It is owned by a single
// caller and is not safe for concurrent use.
type Session struct {
	draft   skills.Draft
	tracker *identity.Tracker

	stage  Stage
	loaded bool

	existing  bool
	published bool
	saving    bool

	commitMessage string
	messageSet    bool

	image        []byte
	imageChanged bool

	onConfigure TransitionHook
}

// NewSession returns a session in the loading state
func NewSession() *Session {
	return &Session{tracker: identity.NewTracker()}
}

// Hydrate loads a brand-new bot into the session
func (s *Session) Hydrate(d skills.Draft) error {
	if s.loaded {
		return ErrAlreadyLoaded
	}
	s.draft = d
	s.loaded = true
	return nil
}

// HydrateExisting loads a published bot and captures the identity it was published under
func (s *Session) HydrateExisting(d skills.Draft, prior skills.Identity) error {
	if s.loaded {
		return ErrAlreadyLoaded
	}
	if err := s.tracker.Capture(prior.Normalized()); err != nil {
		return err
	}
	s.draft = d
	s.existing = true
	s.loaded = true
	return nil
}

// OnConfigureTransition registers the hook run when entering or leaving Configure
func (s *Session) OnConfigureTransition(hook TransitionHook) {
	s.onConfigure = hook
}

// Loaded reports whether the session has been hydrated
func (s *Session) Loaded() bool { return s.loaded }

// Stage returns the current stage
func (s *Session) Stage() Stage { return s.stage }

// IsExisting reports whether saves modify an already published bot
func (s *Session) IsExisting() bool { return s.existing }

// IsSaving reports whether a save is in flight
func (s *Session) IsSaving() bool { return s.saving }

// HasPublished reports whether a save has succeeded in this session
func (s *Session) HasPublished() bool { return s.published }

// ImageChanged reports whether a new image binary was attached since the last save
func (s *Session) ImageChanged() bool { return s.imageChanged }

// Draft returns a copy of the working copy
func (s *Session) Draft() skills.Draft { return s.draft }

// Edit changes the working copy in place
func (s *Session) Edit(fn func(d *skills.Draft)) {
	fn(&s.draft)
}

// AttachImage sets a new image binary to upload with the next save
func (s *Session) AttachImage(name string, data []byte) {
	s.draft.Image = skills.QualifyImage(skills.StripImagePrefix(name))
	s.image = data
	s.imageChanged = true
}

// Identity returns the normalized identity of the working copy
func (s *Session) Identity() skills.Identity {
	return skills.NewIdentity(s.draft.Category, s.draft.Language, s.draft.Name, s.draft.Image)
}

// Prior returns the identity the next save diffs against, if any
func (s *Session) Prior() (skills.Identity, bool) {
	return s.tracker.Prior()
}

// Resolution tells whether the next save creates or modifies
func (s *Session) Resolution() identity.Resolution {
	return s.tracker.Resolve(s.Identity())
}

// CommitMessage returns the changelog sent with the next modify
func (s *Session) CommitMessage() string { return s.commitMessage }

// SetCommitMessage replaces the changelog. A message set here survives re-entering Configure.
func (s *Session) SetCommitMessage(msg string) {
	s.commitMessage = msg
	s.messageSet = true
}

// Next advances one stage. Like JumpTo, it cannot enter Deploy before a successful save.
func (s *Session) Next() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	if s.stage == StageDeploy {
		return ErrAtLastStage
	}
	if s.stage+1 == StageDeploy && !s.published {
		return ErrDeployLocked
	}
	s.move(s.stage + 1)
	return nil
}

// Back returns to the previous stage
func (s *Session) Back() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	if s.stage == StageBuild {
		return ErrAtFirstStage
	}
	s.move(s.stage - 1)
	return nil
}

// JumpTo moves directly to stage. Deploy is reachable only after a successful save.
func (s *Session) JumpTo(stage Stage) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	if !stage.Valid() {
		return errors.Errorf("invalid stage %d", int(stage))
	}
	if stage == StageDeploy && !s.published {
		return ErrDeployLocked
	}
	s.move(stage)
	return nil
}

func (s *Session) move(to Stage) {
	from := s.stage
	s.stage = to

	if to == StageConfigure && !s.messageSet {
		s.commitMessage = s.defaultCommitMessage()
		s.messageSet = true
	}

	if from != to && (from == StageConfigure || to == StageConfigure) && s.onConfigure != nil {
		s.onConfigure(from, to)
	}
}

func (s *Session) defaultCommitMessage() string {
	name := strings.TrimSpace(s.draft.Name)
	if s.existing {
		return "Updated Bot " + name
	}
	return "Created Bot " + name
}

func (s *Session) beginSave() error {
	if !s.loaded {
		return ErrNotLoaded
	}
	if !s.canSave() {
		return ErrNotAtConfigure
	}
	if s.saving {
		return ErrSaveInProgress
	}
	s.saving = true
	return nil
}

// canSave reports whether the current stage accepts a save. Deploy is
// included so a published bot can be saved again.
func (s *Session) canSave() bool {
	return s.stage == StageConfigure || s.stage == StageDeploy
}

func (s *Session) failSave() {
	s.saving = false
}

// completeSave records a publish the store accepted and advances one stage
func (s *Session) completeSave(published skills.Identity) {
	s.tracker.Published(published)
	s.existing = true
	s.published = true
	s.imageChanged = false
	s.image = nil
	s.saving = false
	if s.stage != StageDeploy {
		s.move(s.stage + 1)
	}
}
