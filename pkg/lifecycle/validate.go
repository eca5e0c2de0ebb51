package lifecycle

import (
	"regexp"
	"strings"

	"github.com/jingkaihe/skillcms/pkg/directive"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

var imagePattern = regexp.MustCompile(`.+\.\w+`)

// placeholder images shipped in templates are accepted as-is
var imagePlaceholders = map[string]bool{
	"<image_name>":                true,
	"images/<image_name>":         true,
	"images/<image_name_event>":   true,
	"images/<image_name_job>":     true,
	"images/<image_name_contact>": true,
}

// ValidateImage checks the image path looks like a file name
func ValidateImage(image string) error {
	if imagePattern.MatchString(image) || imagePlaceholders[image] {
		return nil
	}
	return skills.NewValidationError("image", skills.MsgInvalidImage)
}

// Validate checks a working copy before it is published, in the order the
// user is told about problems: image, name, category, language.
func Validate(d skills.Draft) error {
	if err := ValidateImage(d.Image); err != nil {
		return err
	}
	if strings.TrimSpace(d.Name) == "" {
		return skills.NewValidationError("name", skills.MsgMissingName)
	}
	if strings.TrimSpace(d.Category) == "" {
		return skills.NewValidationError("category", skills.MsgMissingCategory)
	}
	if strings.TrimSpace(d.Language) == "" {
		return skills.NewValidationError("language", skills.MsgMissingLanguage)
	}
	return nil
}

// ComposeContent joins the non-empty config, design and build sections and
// prepends the author and protection directives.
func ComposeContent(d skills.Draft, authorEmail string) string {
	sections := make([]string, 0, 3)
	for _, s := range []string{d.ConfigCode, d.DesignCode, d.BuildCode} {
		if s != "" {
			sections = append(sections, s)
		}
	}

	var prefix []directive.Directive
	if authorEmail != "" {
		prefix = append(prefix, directive.Directive{Key: directive.KeyAuthorEmail, Value: authorEmail})
	}
	prefix = append(prefix, directive.Directive{Key: directive.KeyProtected, Value: "Yes"})

	return directive.Prepend(strings.Join(sections, "\n"), prefix...)
}

// DraftForStorage returns the copy of d written by an explicit draft save:
// design code loses its '#' characters and the image is qualified.
func DraftForStorage(d skills.Draft) skills.Draft {
	d.DesignCode = strings.ReplaceAll(d.DesignCode, "#", "")
	if !strings.Contains(d.Image, skills.ImagePrefix) {
		d.Image = skills.ImagePrefix + d.Image
	}
	return d
}
