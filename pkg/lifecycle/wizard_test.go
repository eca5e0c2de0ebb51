package lifecycle

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcms/pkg/contentstore"
	"github.com/jingkaihe/skillcms/pkg/drafts"
	"github.com/jingkaihe/skillcms/pkg/gateway"
	"github.com/jingkaihe/skillcms/pkg/templates"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

type fakeGateway struct {
	unauthenticated bool
	commits         map[string][]skills.Commit
	files           map[string]string
	response        gateway.Response
	err             error

	calls    int
	creates  []gateway.CreatePayload
	modifies []gateway.ModifyPayload
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		commits:  map[string][]skills.Commit{},
		files:    map[string]string{},
		response: gateway.Response{Accepted: true},
	}
}

func (f *fakeGateway) Authenticated() bool { return !f.unauthenticated }

func (f *fakeGateway) History(_ context.Context, loc gateway.Locator) (*gateway.HistoryResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.HistoryResponse{Response: gateway.Response{Accepted: true}, Commits: f.commits[loc.String()]}, nil
}

func (f *fakeGateway) ContentAt(_ context.Context, loc gateway.Locator, commitID string) (*gateway.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.ContentResponse{Response: gateway.Response{Accepted: true}, File: f.files[loc.String()+"@"+commitID]}, nil
}

func (f *fakeGateway) Create(_ context.Context, p gateway.CreatePayload) (*gateway.Response, error) {
	f.calls++
	f.creates = append(f.creates, p)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.response
	return &resp, nil
}

func (f *fakeGateway) Modify(_ context.Context, p gateway.ModifyPayload) (*gateway.Response, error) {
	f.calls++
	f.modifies = append(f.modifies, p)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.response
	return &resp, nil
}

type recorder struct {
	notes []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.notes = append(r.notes, n)
}

func (r *recorder) last() Notification {
	if len(r.notes) == 0 {
		return Notification{}
	}
	return r.notes[len(r.notes)-1]
}

func publishedFoo(gw *fakeGateway) {
	gw.commits["general/grp/en/Foo"] = []skills.Commit{{ID: "c2"}, {ID: "c1"}}
	gw.files["general/grp/en/Foo@c2"] = "::author_email old@example.com\n::protected Yes\n::image images/foo.png\nhi\nhello"
}

func TestWizard_CreateNewSkill(t *testing.T) {
	gw := newFakeGateway()
	notes := &recorder{}
	w := NewWizard(gw, nil, notes, Config{AuthorEmail: "me@example.com", Private: true})
	ctx := context.Background()

	s := w.NewSession(ctx)
	s.Edit(func(d *skills.Draft) {
		d.Category = "demo"
		d.Language = "en"
		d.Name = "Hello Bot"
		d.Image = "images/hello.png"
		d.BuildCode = "hi\nhello"
	})
	require.NoError(t, w.Next(ctx, s))
	require.NoError(t, w.Next(ctx, s))
	assert.Equal(t, "Created Bot Hello Bot", s.CommitMessage())

	res, err := w.Save(ctx, s)
	require.NoError(t, err)
	assert.False(t, res.Resolution.IsUpdate)
	assert.Equal(t, "/demo/Hello_Bot/en", res.CanonicalPath)

	require.Len(t, gw.creates, 1)
	assert.Empty(t, gw.modifies)
	p := gw.creates[0]
	assert.Equal(t, "demo", p.Group)
	assert.Equal(t, "en", p.Language)
	assert.Equal(t, "Hello_Bot", p.Skill)
	assert.Equal(t, "hello.png", p.ImageName)
	assert.True(t, p.Private)
	assert.Equal(t, "::author_email me@example.com\n::protected Yes\nhi\nhello", p.Content)

	assert.Equal(t, StageDeploy, s.Stage())
	assert.True(t, s.HasPublished())
	assert.True(t, s.IsExisting())
	assert.False(t, s.IsSaving())
	assert.Equal(t, Notification{Level: LevelSuccess, Message: MsgSaved}, notes.last())
}

func TestWizard_RenameExistingSkill(t *testing.T) {
	gw := newFakeGateway()
	publishedFoo(gw)
	w := NewWizard(gw, nil, nil, Config{AuthorEmail: "me@example.com"})
	ctx := context.Background()

	s, err := w.LoadExisting(ctx, skills.Identity{Group: "grp", Language: "en", Name: "Foo"})
	require.NoError(t, err)
	assert.True(t, s.IsExisting())
	assert.Equal(t, "images/foo.png", s.Draft().Image)
	assert.Equal(t, "::image images/foo.png\nhi\nhello", s.Draft().BuildCode)

	s.Edit(func(d *skills.Draft) { d.Name = "Bar" })
	require.NoError(t, w.JumpTo(ctx, s, StageConfigure))
	assert.Equal(t, "Updated Bot Bar", s.CommitMessage())
	assert.True(t, s.Resolution().IdentityChanged)

	res, err := w.Save(ctx, s)
	require.NoError(t, err)
	assert.True(t, res.Resolution.IsUpdate)
	assert.True(t, res.Resolution.IdentityChanged)

	require.Len(t, gw.modifies, 1)
	p := gw.modifies[0]
	assert.Equal(t, "Foo", p.OldSkill)
	assert.Equal(t, "Bar", p.NewSkill)
	assert.Equal(t, "grp", p.OldGroup)
	assert.Equal(t, "grp", p.NewGroup)
	assert.Equal(t, "general", p.OldModel)
	assert.Equal(t, "foo.png", p.OldImageName)
	assert.Equal(t, "foo.png", p.NewImageName)
	assert.False(t, p.ImageChanged)
	assert.False(t, p.ImageNameChanged)
	assert.Equal(t, "Updated Bot Bar", p.Changelog)
	assert.Equal(t, "::author_email me@example.com\n::protected Yes\n::image images/foo.png\nhi\nhello", p.Content)

	// the second save in the same session diffs against what was just published
	require.NoError(t, w.JumpTo(ctx, s, StageConfigure))
	s.AttachImage("bar.png", []byte("png"))
	_, err = w.Save(ctx, s)
	require.NoError(t, err)

	require.Len(t, gw.modifies, 2)
	p = gw.modifies[1]
	assert.Equal(t, "Bar", p.OldSkill)
	assert.Equal(t, "Bar", p.NewSkill)
	assert.Equal(t, "foo.png", p.OldImageName)
	assert.Equal(t, "bar.png", p.NewImageName)
	assert.True(t, p.ImageChanged)
	assert.True(t, p.ImageNameChanged)
	assert.Equal(t, []byte("png"), p.Image)
	assert.False(t, s.ImageChanged(), "reset after a successful save")
}

func TestWizard_SaveValidatesBeforeNetwork(t *testing.T) {
	complete := skills.Draft{Category: "demo", Language: "en", Name: "Bot", Image: "images/bot.png"}

	tests := []struct {
		name            string
		unauthenticated bool
		edit            func(d *skills.Draft)
		expected        string
	}{
		{name: "unauthenticated first", unauthenticated: true, edit: func(d *skills.Draft) { d.Name = "" }, expected: skills.MsgNotAuthenticated},
		{name: "image", edit: func(d *skills.Draft) { d.Image = "bot"; d.Name = "" }, expected: skills.MsgInvalidImage},
		{name: "name", edit: func(d *skills.Draft) { d.Name = ""; d.Category = "" }, expected: skills.MsgMissingName},
		{name: "category", edit: func(d *skills.Draft) { d.Category = ""; d.Language = "" }, expected: skills.MsgMissingCategory},
		{name: "language", edit: func(d *skills.Draft) { d.Language = "" }, expected: skills.MsgMissingLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.unauthenticated = tt.unauthenticated
			notes := &recorder{}
			w := NewWizard(gw, nil, notes, Config{})

			s := loadedSession(t, complete)
			s.Edit(tt.edit)
			require.NoError(t, s.JumpTo(StageConfigure))

			_, err := w.Save(context.Background(), s)
			require.Error(t, err)
			assert.True(t, skills.IsValidation(err))
			assert.Equal(t, tt.expected, skills.UserMessage(err))
			assert.Equal(t, Notification{Level: LevelError, Message: tt.expected}, notes.last())
			assert.Zero(t, gw.calls)
			assert.Equal(t, StageConfigure, s.Stage())
			assert.False(t, s.IsSaving())
		})
	}
}

func TestWizard_SaveFailuresKeepSessionState(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(gw *fakeGateway)
		expected string
		check    func(t *testing.T, err error)
	}{
		{
			name: "store rejection surfaces message verbatim",
			setup: func(gw *fakeGateway) {
				gw.response = gateway.Response{Accepted: false, Message: "Skill already exists"}
			},
			expected: "Skill already exists",
			check: func(t *testing.T, err error) {
				assert.True(t, skills.IsStoreRejected(err))
			},
		},
		{
			name: "transport failure is generic",
			setup: func(gw *fakeGateway) {
				gw.err = skills.NewTransportError("create", errors.New("dial tcp: connection refused"))
			},
			expected: skills.MsgTransport,
			check: func(t *testing.T, err error) {
				assert.True(t, skills.IsTransport(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			tt.setup(gw)
			notes := &recorder{}
			w := NewWizard(gw, nil, notes, Config{})

			s := loadedSession(t, skills.Draft{Category: "demo", Language: "en", Name: "Bot", Image: "images/bot.png"})
			require.NoError(t, s.JumpTo(StageConfigure))
			s.AttachImage("bot.png", []byte("png"))

			_, err := w.Save(context.Background(), s)
			require.Error(t, err)
			tt.check(t, err)

			assert.Equal(t, Notification{Level: LevelError, Message: tt.expected}, notes.last())
			assert.False(t, s.IsSaving())
			assert.Equal(t, StageConfigure, s.Stage())
			assert.False(t, s.HasPublished())
			assert.False(t, s.IsExisting())
			assert.True(t, s.ImageChanged())
			assert.True(t, errors.Is(w.JumpTo(context.Background(), s, StageDeploy), ErrDeployLocked))
		})
	}
}

func TestWizard_SaveOnlyFromConfigure(t *testing.T) {
	complete := skills.Draft{Category: "demo", Language: "en", Name: "Bot", Image: "images/bot.png"}

	for _, stage := range []Stage{StageBuild, StageDesign} {
		t.Run(stage.String(), func(t *testing.T) {
			gw := newFakeGateway()
			notes := &recorder{}
			w := NewWizard(gw, nil, notes, Config{})
			ctx := context.Background()

			s := loadedSession(t, complete)
			require.NoError(t, s.JumpTo(stage))

			_, err := w.Save(ctx, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotAtConfigure))
			assert.Equal(t, LevelError, notes.last().Level)
			assert.Zero(t, gw.calls)
			assert.Equal(t, stage, s.Stage())
			assert.False(t, s.HasPublished())
			assert.False(t, s.IsSaving())
			assert.Empty(t, s.CommitMessage())

			assert.True(t, errors.Is(w.JumpTo(ctx, s, StageDeploy), ErrDeployLocked))
			assert.True(t, errors.Is(s.beginSave(), ErrNotAtConfigure))
		})
	}
}

func TestWizard_JumpToDeployNotifies(t *testing.T) {
	notes := &recorder{}
	w := NewWizard(newFakeGateway(), nil, notes, Config{})
	ctx := context.Background()
	s := w.NewSession(ctx)

	err := w.JumpTo(ctx, s, StageDeploy)
	assert.True(t, errors.Is(err, ErrDeployLocked))
	assert.Equal(t, Notification{Level: LevelWarning, Message: MsgDeployLocked}, notes.last())

	require.NoError(t, w.JumpTo(ctx, s, StageConfigure))
	assert.True(t, errors.Is(w.Next(ctx, s), ErrDeployLocked))
	assert.Len(t, notes.notes, 2)
}

func TestWizard_LoadExistingFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(gw *fakeGateway)
	}{
		{name: "transport", setup: func(gw *fakeGateway) { gw.err = skills.NewTransportError("history", errors.New("boom")) }},
		{name: "no commits", setup: func(gw *fakeGateway) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			tt.setup(gw)
			notes := &recorder{}
			w := NewWizard(gw, nil, notes, Config{})

			s, err := w.LoadExisting(context.Background(), skills.Identity{Group: "grp", Language: "en", Name: "Foo"})
			require.Error(t, err)
			assert.Nil(t, s)
			assert.Equal(t, Notification{Level: LevelError, Message: MsgFetchSkillFailed}, notes.last())
		})
	}
}

func TestWizard_LoadTemplate(t *testing.T) {
	w := NewWizard(newFakeGateway(), nil, nil, Config{})
	s, err := w.LoadTemplate(context.Background(), &templates.Template{ID: "faq", Category: "support", Language: "en", Code: "hi\nhello"})
	require.NoError(t, err)
	assert.True(t, s.Loaded())
	assert.False(t, s.IsExisting())
	assert.Equal(t, skills.Draft{Category: "support", Language: "en", BuildCode: "hi\nhello"}, s.Draft())

	_, err = w.LoadTemplate(context.Background(), nil)
	assert.Error(t, err)
}

func newDraftStore(t *testing.T) *drafts.SQLiteStore {
	t.Helper()
	store, err := drafts.Open(context.Background(), filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWizard_Drafts(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	notes := &recorder{}
	gw := newFakeGateway()
	w := NewWizard(gw, store, notes, Config{Owner: "alice"})

	s := w.NewSession(ctx)
	s.Edit(func(d *skills.Draft) {
		d.Name = "Hello Bot"
		d.Language = "en"
		d.DesignCode = "::bodyBackground #ffffff"
		d.Image = "hello.png"
	})

	_, err := w.SaveDraft(ctx, s)
	require.Error(t, err)
	assert.Equal(t, MsgDraftNoCategory, skills.UserMessage(err))
	assert.Equal(t, Notification{Level: LevelWarning, Message: MsgDraftNoCategory}, notes.last())

	s.Edit(func(d *skills.Draft) { d.Category = "demo" })
	id, err := w.SaveDraft(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, Notification{Level: LevelSuccess, Message: MsgDraftSaved}, notes.last())
	assert.Zero(t, gw.calls, "drafts never touch the content store")

	resumed, err := w.LoadDraft(ctx, id)
	require.NoError(t, err)
	assert.False(t, resumed.IsExisting())
	assert.Equal(t, "::bodyBackground ffffff", resumed.Draft().DesignCode)
	assert.Equal(t, "images/hello.png", resumed.Draft().Image)
	assert.False(t, resumed.Resolution().IsUpdate)

	_, err = w.LoadDraft(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, Notification{Level: LevelError, Message: MsgDraftLoadFailed}, notes.last())
}

func TestWizard_DraftsAsExisting(t *testing.T) {
	ctx := context.Background()
	store := newDraftStore(t)
	gw := newFakeGateway()
	w := NewWizard(gw, store, nil, Config{Owner: "alice", DraftsAsExisting: true})

	id, err := store.Save(ctx, "alice", skills.Draft{Category: "grp", Language: "en", Name: "Foo", Image: "images/foo.png"})
	require.NoError(t, err)

	s, err := w.LoadDraft(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.IsExisting())
	assert.True(t, s.Resolution().IsUpdate)
	assert.False(t, s.Resolution().IdentityChanged)

	require.NoError(t, s.JumpTo(StageConfigure))
	_, err = w.Save(ctx, s)
	require.NoError(t, err)
	require.Len(t, gw.modifies, 1)
	assert.Equal(t, "Foo", gw.modifies[0].OldSkill)
}

func TestWizard_WithoutDraftStore(t *testing.T) {
	w := NewWizard(newFakeGateway(), nil, nil, Config{})
	ctx := context.Background()
	_, err := w.SaveDraft(ctx, w.NewSession(ctx))
	assert.Error(t, err)
	_, err = w.LoadDraft(ctx, "x")
	assert.Error(t, err)
}

func TestWizard_AgainstContentStore(t *testing.T) {
	store, err := contentstore.New(contentstore.WithTokens(map[string]string{"tok": "alice"}))
	require.NoError(t, err)
	handler, err := contentstore.NewServer(store, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client, err := gateway.NewClient(srv.URL, gateway.WithAccessToken("tok"))
	require.NoError(t, err)

	ctx := context.Background()
	w := NewWizard(client, nil, nil, Config{AuthorEmail: "alice@example.com"})

	s := w.NewSession(ctx)
	s.Edit(func(d *skills.Draft) {
		d.Category = "demo"
		d.Language = "en"
		d.Name = "Hello Bot"
		d.ConfigCode = "::image images/hello.png"
		d.BuildCode = "hi\nhello"
		d.Image = "images/hello.png"
	})
	require.NoError(t, s.JumpTo(StageConfigure))
	_, err = w.Save(ctx, s)
	require.NoError(t, err)

	s.Edit(func(d *skills.Draft) { d.Name = "Greeter" })
	require.NoError(t, s.JumpTo(StageConfigure))
	s.SetCommitMessage("rename to Greeter")
	_, err = w.Save(ctx, s)
	require.NoError(t, err)

	_, ok := store.Skill(contentstore.Key{Model: "general", Group: "demo", Language: "en", Skill: "Hello_Bot"})
	assert.False(t, ok)
	rec, ok := store.Skill(contentstore.Key{Model: "general", Group: "demo", Language: "en", Skill: "Greeter"})
	require.True(t, ok)
	require.Len(t, rec.Commits, 2)
	assert.Equal(t, "rename to Greeter", rec.Commits[0].Message)
	assert.Equal(t, "alice@example.com", rec.Commits[0].Author)

	loaded, err := w.LoadExisting(ctx, skills.Identity{Group: "demo", Language: "en", Name: "Greeter"})
	require.NoError(t, err)
	assert.Equal(t, "images/hello.png", loaded.Draft().Image)
	assert.Equal(t, "::image images/hello.png\nhi\nhello", loaded.Draft().BuildCode)
}
