package skills

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "spaces", input: "Hello Bot", expected: "Hello_Bot"},
		{name: "surrounding whitespace", input: "  Hello Bot  ", expected: "Hello_Bot"},
		{name: "tabs and newlines", input: "a\tb\nc", expected: "a_b_c"},
		{name: "already normalized", input: "Foo", expected: "Foo"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestImagePrefix(t *testing.T) {
	assert.Equal(t, "bot.png", StripImagePrefix("images/bot.png"))
	assert.Equal(t, "bot.png", StripImagePrefix("bot.png"))
	assert.Equal(t, "images/bot.png", QualifyImage("bot.png"))
	assert.Equal(t, "images/bot.png", QualifyImage("images/bot.png"))
}

func TestIdentity(t *testing.T) {
	id := NewIdentity(" demo ", "en", "Hello Bot", "images/hello.png")
	assert.Equal(t, Identity{Group: "demo", Language: "en", Name: "Hello_Bot", ImageName: "hello.png"}, id)
	assert.Equal(t, "images/hello.png", id.QualifiedImage())
	assert.Equal(t, "/demo/Hello_Bot/en", id.CanonicalPath())
	assert.True(t, id.Equal(id.Normalized()))

	other := id
	other.ImageName = "other.png"
	assert.False(t, id.Equal(other))
	assert.Empty(t, Identity{}.QualifiedImage())
}

func TestMarkLatest(t *testing.T) {
	commits := []Commit{{ID: "c3"}, {ID: "c2", IsLatest: true}, {ID: "c1"}}

	marked := MarkLatest(commits)

	assert.True(t, marked[0].IsLatest)
	assert.False(t, marked[1].IsLatest)
	assert.False(t, marked[2].IsLatest)
	assert.True(t, commits[1].IsLatest, "input must not be modified")
	assert.Empty(t, MarkLatest(nil))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "validation", err: NewValidationError("name", MsgMissingName), expected: MsgMissingName},
		{name: "wrapped validation", err: errors.Wrap(ErrNotAuthenticated, "save"), expected: MsgNotAuthenticated},
		{name: "invalid content", err: &InvalidContentError{Directive: "image"}, expected: MsgInvalidContent},
		{name: "store rejected", err: &StoreRejectedError{Op: "modify", Message: "Skill already exists"}, expected: "Skill already exists"},
		{name: "transport", err: NewTransportError("modify", errors.New("dial tcp: refused")), expected: MsgTransport},
		{name: "other", err: errors.New("boom"), expected: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	transport := errors.Wrap(NewTransportError("history", errors.New("timeout")), "list")
	assert.True(t, IsTransport(transport))
	assert.False(t, IsStoreRejected(transport))

	rejected := &StoreRejectedError{Op: "create", Message: "no"}
	assert.True(t, IsStoreRejected(rejected))
	assert.False(t, IsTransport(rejected))

	assert.True(t, IsValidation(ErrNotAuthenticated))
	assert.True(t, IsInvalidContent(&InvalidContentError{Directive: "image", Which: "latest"}))
	assert.Contains(t, (&InvalidContentError{Directive: "image", Which: "latest"}).Error(), "latest content")
}
