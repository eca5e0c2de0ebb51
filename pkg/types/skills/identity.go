// Package skills defines the value types shared across the skill revision
// lifecycle: identities, commits, revisions, drafts and the error taxonomy
// surfaced to callers.
package skills

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultModel is the store model every skill in the console lives under
	DefaultModel = "general"

	// ImagePrefix is the directory the store keeps skill images in
	ImagePrefix = "images/"
)

var whitespacePattern = regexp.MustCompile(`\s`)

// Identity addresses a skill within the content store. ImageName never
// carries the images/ prefix.
type Identity struct {
	Group     string `json:"group" yaml:"group"`
	Language  string `json:"language" yaml:"language"`
	Name      string `json:"name" yaml:"name"`
	ImageName string `json:"imageName" yaml:"imageName"`
}

// NormalizeName trims the name and renders every remaining whitespace
// character as an underscore so it can be used as an identity key.
func NormalizeName(name string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(name), "_")
}

// StripImagePrefix removes a leading images/ segment, if present.
func StripImagePrefix(image string) string {
	return strings.TrimPrefix(image, ImagePrefix)
}

// QualifyImage re-adds the images/ segment for use at the store boundary.
func QualifyImage(image string) string {
	if strings.HasPrefix(image, ImagePrefix) {
		return image
	}
	return ImagePrefix + image
}

// NewIdentity builds a normalized identity from raw user input.
func NewIdentity(group, language, name, image string) Identity {
	return Identity{
		Group:     strings.TrimSpace(group),
		Language:  strings.TrimSpace(language),
		Name:      NormalizeName(name),
		ImageName: StripImagePrefix(strings.TrimSpace(image)),
	}
}

// Normalized returns a copy with the name and image invariants applied.
func (i Identity) Normalized() Identity {
	return NewIdentity(i.Group, i.Language, i.Name, i.ImageName)
}

// Equal reports whether every identity field matches.
func (i Identity) Equal(other Identity) bool {
	return i.Group == other.Group &&
		i.Language == other.Language &&
		i.Name == other.Name &&
		i.ImageName == other.ImageName
}

// QualifiedImage returns the image name with its store directory.
func (i Identity) QualifiedImage() string {
	if i.ImageName == "" {
		return ""
	}
	return QualifyImage(i.ImageName)
}

// CanonicalPath is the non-historical console path of the skill.
func (i Identity) CanonicalPath() string {
	return fmt.Sprintf("/%s/%s/%s", i.Group, i.Name, i.Language)
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", i.Group, i.Language, i.Name)
}
