// Package rollback publishes the content of a historical commit as a new
// head revision. History is never rewritten; a rollback is an ordinary
// modify whose changelog names the commit being restored.
package rollback

import (
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcms/pkg/directive"
	"github.com/jingkaihe/skillcms/pkg/gateway"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// ChangelogPrefix starts the changelog of every rollback commit
const ChangelogPrefix = "Reverting to Commit - "

// Compose builds the modify request that makes target the new head. Both
// contents must carry an ::image directive; the latest one names the image
// being replaced and the target one the image restored. The skill is never
// renamed and no image binary is uploaded.
func Compose(latest, target, targetID string, id skills.Identity, model string) (gateway.ModifyPayload, error) {
	if targetID == "" {
		return gateway.ModifyPayload{}, errors.New("target commit ID cannot be empty")
	}

	oldImage, err := imageOf(latest, "latest")
	if err != nil {
		return gateway.ModifyPayload{}, err
	}
	newImage, err := imageOf(target, "target")
	if err != nil {
		return gateway.ModifyPayload{}, err
	}

	if model == "" {
		model = skills.DefaultModel
	}
	id = id.Normalized()

	return gateway.ModifyPayload{
		OldModel:         model,
		OldGroup:         id.Group,
		OldLanguage:      id.Language,
		OldSkill:         id.Name,
		OldImageName:     oldImage,
		NewModel:         model,
		NewGroup:         id.Group,
		NewLanguage:      id.Language,
		NewSkill:         id.Name,
		NewImageName:     newImage,
		Content:          target,
		Changelog:        ChangelogPrefix + targetID,
		ImageChanged:     false,
		ImageNameChanged: true,
	}, nil
}

func imageOf(content, which string) (string, error) {
	image, err := directive.Extract(content, directive.KeyImage)
	if err != nil {
		if errors.Is(err, directive.ErrNotFound) {
			return "", &skills.InvalidContentError{Directive: directive.KeyImage, Which: which}
		}
		return "", err
	}
	return skills.StripImagePrefix(image), nil
}
