package lifecycle

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillcms/pkg/directive"
	"github.com/jingkaihe/skillcms/pkg/drafts"
	"github.com/jingkaihe/skillcms/pkg/gateway"
	"github.com/jingkaihe/skillcms/pkg/identity"
	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/telemetry"
	"github.com/jingkaihe/skillcms/pkg/templates"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// Notification texts raised by the wizard
const (
	MsgDeployLocked      = "Please save the chatbot in Configure tab before deploying."
	MsgSaved             = "Your Bot has been saved"
	MsgFetchSkillFailed  = "Error! Couldn't fetch skill"
	MsgDraftSaved        = "Successfully saved draft of your chatbot."
	MsgDraftSaveFailed   = "Couldn't save the draft. Please try again."
	MsgDraftNoCategory   = "Couldn't save the draft. Please select the Category"
	MsgDraftLoadFailed   = "Couldn't get your drafts. Please reload the page."
	MsgDraftStoreMissing = "Drafts are not available"
)

// Level is the severity of a notification
type Level int

// Notification levels
const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a short message for the user
type Notification struct {
	Level   Level
	Message string
}

// Notifier shows notifications to the user
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Config holds the account-level settings a wizard publishes with
type Config struct {
	Model       string
	Owner       string
	AuthorEmail string
	Private     bool
	// DraftsAsExisting makes a resumed draft capture its identity as the prior,
	// so the first save modifies instead of creating.
	DraftsAsExisting bool
}

// SaveResult describes an accepted save
type SaveResult struct {
	Identity      skills.Identity
	Resolution    identity.Resolution
	CanonicalPath string
}

// Wizard drives editing sessions against the content store
type Wizard struct {
	gateway  gateway.Gateway
	drafts   drafts.Store
	notifier Notifier
	config   Config
}

// NewWizard creates a wizard. store and notifier may be nil.
func NewWizard(gw gateway.Gateway, store drafts.Store, notifier Notifier, config Config) *Wizard {
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notification) {})
	}
	if config.Model == "" {
		config.Model = skills.DefaultModel
	}
	return &Wizard{
		gateway:  gw,
		drafts:   store,
		notifier: notifier,
		config:   config,
	}
}

func (w *Wizard) notify(ctx context.Context, level Level, msg string) {
	w.notifier.Notify(ctx, Notification{Level: level, Message: msg})
}

// NewSession starts a session for a brand-new, empty bot
func (w *Wizard) NewSession(_ context.Context) *Session {
	s := NewSession()
	_ = s.Hydrate(skills.Draft{})
	return s
}

// LoadTemplate starts a session for a new bot seeded from a template
func (w *Wizard) LoadTemplate(_ context.Context, tmpl *templates.Template) (*Session, error) {
	if tmpl == nil {
		return nil, errors.New("template cannot be nil")
	}
	s := NewSession()
	if err := s.Hydrate(skills.Draft{
		Category:  tmpl.Category,
		Language:  tmpl.Language,
		BuildCode: tmpl.Code,
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadExisting starts a session editing a published bot. The head revision is
// fetched and the identity it lives under becomes the session's prior.
func (w *Wizard) LoadExisting(ctx context.Context, id skills.Identity) (*Session, error) {
	id = id.Normalized()
	loc := gateway.LocatorFor(id, w.config.Model)
	log := logger.G(ctx).WithField("skill", loc.String())

	content, err := w.fetchHead(ctx, loc)
	if err != nil {
		log.WithError(err).Warn("failed to load skill")
		w.notify(ctx, LevelError, MsgFetchSkillFailed)
		return nil, err
	}

	image, err := directive.Extract(content, directive.KeyImage)
	if err != nil {
		log.Debug("skill has no image directive")
		image = ""
	}
	id.ImageName = skills.StripImagePrefix(image)

	d := skills.Draft{
		Category:  id.Group,
		Language:  id.Language,
		Name:      id.Name,
		BuildCode: directive.Strip(content, directive.KeyAuthorEmail, directive.KeyProtected),
		Image:     id.QualifiedImage(),
	}

	s := NewSession()
	if err := s.HydrateExisting(d, id); err != nil {
		return nil, err
	}
	log.Debug("skill loaded for editing")
	return s, nil
}

func (w *Wizard) fetchHead(ctx context.Context, loc gateway.Locator) (string, error) {
	history, err := w.gateway.History(ctx, loc)
	if err != nil {
		return "", err
	}
	if err := history.Err("history"); err != nil {
		return "", err
	}
	if len(history.Commits) == 0 {
		return "", errors.Errorf("skill %s has no commits", loc)
	}

	resp, err := w.gateway.ContentAt(ctx, loc, history.Commits[0].ID)
	if err != nil {
		return "", err
	}
	if err := resp.Err("contentAt"); err != nil {
		return "", err
	}
	return resp.File, nil
}

// LoadDraft starts a session from a stored draft
func (w *Wizard) LoadDraft(ctx context.Context, draftID string) (*Session, error) {
	if w.drafts == nil {
		w.notify(ctx, LevelError, MsgDraftStoreMissing)
		return nil, errors.New("no draft store configured")
	}

	d, err := w.drafts.Load(ctx, w.config.Owner, draftID)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("draft_id", draftID).Warn("failed to load draft")
		w.notify(ctx, LevelError, MsgDraftLoadFailed)
		return nil, err
	}

	s := NewSession()
	if w.config.DraftsAsExisting {
		err = s.HydrateExisting(d, skills.NewIdentity(d.Category, d.Language, d.Name, d.Image))
	} else {
		err = s.Hydrate(d)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveDraft stores the session's working copy as a draft and returns its id
func (w *Wizard) SaveDraft(ctx context.Context, s *Session) (string, error) {
	if w.drafts == nil {
		w.notify(ctx, LevelError, MsgDraftStoreMissing)
		return "", errors.New("no draft store configured")
	}

	d := DraftForStorage(s.Draft())
	if strings.TrimSpace(d.Category) == "" {
		w.notify(ctx, LevelWarning, MsgDraftNoCategory)
		return "", skills.NewValidationError("category", MsgDraftNoCategory)
	}

	id, err := w.drafts.Save(ctx, w.config.Owner, d)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to save draft")
		w.notify(ctx, LevelError, MsgDraftSaveFailed)
		return "", err
	}

	w.notify(ctx, LevelSuccess, MsgDraftSaved)
	return id, nil
}

// JumpTo moves the session to stage, telling the user when Deploy is still locked
func (w *Wizard) JumpTo(ctx context.Context, s *Session, stage Stage) error {
	return w.guarded(ctx, s.JumpTo(stage))
}

// Next advances the session one stage, telling the user when Deploy is still locked
func (w *Wizard) Next(ctx context.Context, s *Session) error {
	return w.guarded(ctx, s.Next())
}

func (w *Wizard) guarded(ctx context.Context, err error) error {
	if errors.Is(err, ErrDeployLocked) {
		w.notify(ctx, LevelWarning, MsgDeployLocked)
	}
	return err
}

// Save publishes the working copy. A session without a prior identity
// creates the bot; otherwise the prior is modified, renaming it when the
// identity changed. Only sessions on Configure (or Deploy, after a first
// publish) can be saved. On success the session advances one stage. On failure
// the session is left as it was before the call.
func (w *Wizard) Save(ctx context.Context, s *Session) (*SaveResult, error) {
	if err := w.validate(s); err != nil {
		w.notify(ctx, LevelError, skills.UserMessage(err))
		return nil, err
	}
	if err := s.beginSave(); err != nil {
		return nil, err
	}

	id := s.Identity()
	res := s.Resolution()
	log := logger.G(ctx).WithFields(logrus.Fields{
		"skill":            id.String(),
		"update":           res.IsUpdate,
		"identity_changed": res.IdentityChanged,
	})

	err := telemetry.WithSpan(ctx, "lifecycle.save", func(ctx context.Context) error {
		if res.IsUpdate {
			return w.modify(ctx, s, id)
		}
		return w.create(ctx, s, id)
	}, attribute.String("skill", id.String()), attribute.Bool("update", res.IsUpdate))
	if err != nil {
		s.failSave()
		log.WithError(err).Warn("save failed")
		w.notify(ctx, LevelError, skills.UserMessage(err))
		return nil, err
	}

	s.completeSave(id)
	log.Info("bot saved")
	w.notify(ctx, LevelSuccess, MsgSaved)

	return &SaveResult{
		Identity:      id,
		Resolution:    res,
		CanonicalPath: id.CanonicalPath(),
	}, nil
}

func (w *Wizard) validate(s *Session) error {
	if !s.Loaded() {
		return ErrNotLoaded
	}
	if !s.canSave() {
		return ErrNotAtConfigure
	}
	if auth, ok := w.gateway.(gateway.Authenticator); ok && !auth.Authenticated() {
		return skills.ErrNotAuthenticated
	}
	return Validate(s.Draft())
}

func (w *Wizard) create(ctx context.Context, s *Session, id skills.Identity) error {
	resp, err := w.gateway.Create(ctx, gateway.CreatePayload{
		Group:     id.Group,
		Language:  id.Language,
		Skill:     id.Name,
		Content:   ComposeContent(s.Draft(), w.config.AuthorEmail),
		Image:     s.image,
		ImageName: id.ImageName,
		Private:   w.config.Private,
	})
	if err != nil {
		return err
	}
	return resp.Err("create")
}

func (w *Wizard) modify(ctx context.Context, s *Session, id skills.Identity) error {
	prior, _ := s.Prior()
	resp, err := w.gateway.Modify(ctx, gateway.ModifyPayload{
		OldModel:         w.config.Model,
		OldGroup:         prior.Group,
		OldLanguage:      prior.Language,
		OldSkill:         prior.Name,
		OldImageName:     prior.ImageName,
		NewModel:         w.config.Model,
		NewGroup:         id.Group,
		NewLanguage:      id.Language,
		NewSkill:         id.Name,
		NewImageName:     id.ImageName,
		Content:          ComposeContent(s.Draft(), w.config.AuthorEmail),
		Changelog:        s.CommitMessage(),
		ImageChanged:     s.imageChanged,
		ImageNameChanged: s.imageChanged || prior.ImageName != id.ImageName,
		Image:            s.image,
		Private:          w.config.Private,
	})
	if err != nil {
		return err
	}
	return resp.Err("modify")
}
