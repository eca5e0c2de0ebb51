package contentstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func testKey(skill string) Key {
	return Key{Model: "general", Group: "grp", Language: "en", Skill: skill}
}

func TestStore_CreateAndHistory(t *testing.T) {
	s, err := New(WithClock(fixedClock()))
	require.NoError(t, err)

	assert.Empty(t, s.History(testKey("Foo")))

	commit, err := s.Create(CreateRequest{Key: testKey("Foo"), Content: "::image images/foo.png\nbody", ImageName: "foo.png", Token: "tok"})
	require.NoError(t, err)
	assert.Len(t, commit.ID, 32)
	assert.Equal(t, "anonymous", commit.Author)

	history := s.History(testKey("Foo"))
	require.Len(t, history, 1)
	assert.Equal(t, commit.ID, history[0].ID)

	_, err = s.Create(CreateRequest{Key: testKey("Foo"), Content: "x", Token: "tok"})
	assert.True(t, errors.Is(err, ErrSkillExists))
}

func TestStore_Authorization(t *testing.T) {
	s, err := New(WithTokens(map[string]string{"good": "alice"}))
	require.NoError(t, err)

	_, err = s.Create(CreateRequest{Key: testKey("Foo"), Content: "x"})
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = s.Create(CreateRequest{Key: testKey("Foo"), Content: "x", Token: "bad"})
	assert.True(t, errors.Is(err, ErrUnauthorized))

	commit, err := s.Create(CreateRequest{Key: testKey("Foo"), Content: "x", Token: "good"})
	require.NoError(t, err)
	assert.Equal(t, "alice", commit.Author)

	commit, err = s.Modify(ModifyRequest{Old: testKey("Foo"), New: testKey("Foo"), Content: "::author_email a@example.com\ny", Token: "good"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", commit.Author)
}

func TestStore_ModifyNewestFirst(t *testing.T) {
	s, err := New(WithClock(fixedClock()))
	require.NoError(t, err)

	first, err := s.Create(CreateRequest{Key: testKey("Foo"), Content: "v1", Token: "tok"})
	require.NoError(t, err)
	second, err := s.Modify(ModifyRequest{Old: testKey("Foo"), New: testKey("Foo"), Content: "v2", Changelog: "second", Token: "tok"})
	require.NoError(t, err)

	history := s.History(testKey("Foo"))
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	assert.True(t, history[0].Date.After(history[1].Date))
	assert.Equal(t, "second", history[0].Message)

	c, err := s.ContentAt(testKey("Foo"), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", c.Content)

	_, err = s.ContentAt(testKey("Foo"), "nope")
	assert.True(t, errors.Is(err, ErrCommitNotFound))
	_, err = s.ContentAt(testKey("Bar"), first.ID)
	assert.True(t, errors.Is(err, ErrSkillNotFound))
}

func TestStore_ModifyRename(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Create(CreateRequest{Key: testKey("Foo"), Content: "v1", Image: []byte("png"), ImageName: "foo.png", Token: "tok"})
	require.NoError(t, err)
	_, err = s.Create(CreateRequest{Key: testKey("Taken"), Content: "v1", Token: "tok"})
	require.NoError(t, err)

	_, err = s.Modify(ModifyRequest{Old: testKey("Missing"), New: testKey("Bar"), Content: "x", Token: "tok"})
	assert.True(t, errors.Is(err, ErrSkillNotFound))

	_, err = s.Modify(ModifyRequest{Old: testKey("Foo"), New: testKey("Taken"), Content: "x", Token: "tok"})
	assert.True(t, errors.Is(err, ErrSkillExists))

	_, err = s.Modify(ModifyRequest{Old: testKey("Foo"), New: testKey("Bar"), NewImageName: "bar.png", Content: "v2", Token: "tok"})
	require.NoError(t, err)

	_, ok := s.Skill(testKey("Foo"))
	assert.False(t, ok)
	rec, ok := s.Skill(testKey("Bar"))
	require.True(t, ok)
	assert.Equal(t, "bar.png", rec.ImageName)
	assert.Len(t, rec.Commits, 2, "history follows the rename")

	img, ok := s.Image(testKey("Bar"))
	require.True(t, ok)
	assert.Equal(t, []byte("png"), img)
}

func TestStore_InvalidKey(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Create(CreateRequest{Key: Key{Model: "general"}, Token: "tok"})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestStore_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := New(WithSnapshot(path))
	require.NoError(t, err)
	commit, err := s.Create(CreateRequest{Key: testKey("Foo"), Content: "v1", Token: "tok"})
	require.NoError(t, err)

	reloaded, err := New(WithSnapshot(path))
	require.NoError(t, err)
	history := reloaded.History(testKey("Foo"))
	require.Len(t, history, 1)
	assert.Equal(t, commit.ID, history[0].ID)
	assert.Equal(t, "v1", history[0].Content)
}
