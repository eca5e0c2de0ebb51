// Package gateway is the client side of the remote content store. It
// exposes the four calls the revision lifecycle depends on: commit history,
// file content at a commit, skill creation and skill modification (which is
// also how renames and rollbacks are published).
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// Gateway is the contract the lifecycle, comparator and rollback packages
// depend on. A nil error means the call completed; callers check Accepted.
type Gateway interface {
	History(ctx context.Context, loc Locator) (*HistoryResponse, error)
	ContentAt(ctx context.Context, loc Locator, commitID string) (*ContentResponse, error)
	Create(ctx context.Context, payload CreatePayload) (*Response, error)
	Modify(ctx context.Context, payload ModifyPayload) (*Response, error)
}

// Authenticator is implemented by gateways that can tell, without a network
// call, whether store writes would carry an access token.
type Authenticator interface {
	Authenticated() bool
}

// Locator addresses a skill in the store
type Locator struct {
	Model    string
	Group    string
	Language string
	Skill    string
}

// LocatorFor builds a locator from an identity. An empty model means skills.DefaultModel.
func LocatorFor(id skills.Identity, model string) Locator {
	if model == "" {
		model = skills.DefaultModel
	}
	return Locator{
		Model:    model,
		Group:    id.Group,
		Language: id.Language,
		Skill:    id.Name,
	}
}

func (l Locator) String() string {
	return strings.Join([]string{l.Model, l.Group, l.Language, l.Skill}, "/")
}

// Response is the outcome of a completed store call
type Response struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// Err converts a rejected response into a StoreRejectedError
func (r *Response) Err(op string) error {
	if r == nil || r.Accepted {
		return nil
	}
	return &skills.StoreRejectedError{Op: op, Message: r.Message}
}

// HistoryResponse lists a skill's commits, newest first
type HistoryResponse struct {
	Response
	Commits []skills.Commit
}

// ContentResponse is a skill's full text at one commit
type ContentResponse struct {
	Response
	File       string
	Author     string
	CommitDate time.Time
}

// CreatePayload publishes a brand-new skill
type CreatePayload struct {
	Group    string
	Language string
	Skill    string
	Content  string
	// Image is an optional binary upload. Without it the store default image is used.
	Image     []byte
	ImageName string
	Private   bool
}

// ModifyPayload publishes a new head revision, optionally renaming the skill
type ModifyPayload struct {
	OldModel     string
	OldGroup     string
	OldLanguage  string
	OldSkill     string
	OldImageName string

	NewModel     string
	NewGroup     string
	NewLanguage  string
	NewSkill     string
	NewImageName string

	Content   string
	Changelog string

	// ImageChanged is true only when a new binary is uploaded in Image
	ImageChanged     bool
	ImageNameChanged bool
	Image            []byte
	Private          bool
}
