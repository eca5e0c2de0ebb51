package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// DraftFile is the on-disk YAML form of a bot being authored
type DraftFile struct {
	skills.Draft `yaml:",inline"`

	// ImageFile is a local image uploaded with the next save, relative to the draft file
	ImageFile string `json:"imageFile,omitempty" yaml:"imageFile,omitempty" jsonschema:"description=Local image file uploaded on publish"`
	// CommitMessage overrides the default "Created Bot"/"Updated Bot" message
	CommitMessage string `json:"commitMessage,omitempty" yaml:"commitMessage,omitempty" jsonschema:"description=Commit message used on publish"`
}

func readDraftFile(path string) (*DraftFile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read draft file %s", path)
	}

	var f DraftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse draft file %s", path)
	}
	if f.ImageFile != "" && !filepath.IsAbs(f.ImageFile) && path != "-" {
		f.ImageFile = filepath.Join(filepath.Dir(path), f.ImageFile)
	}
	return &f, nil
}

func writeDraftFile(w io.Writer, f *DraftFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "failed to encode draft")
	}
	return enc.Close()
}

// apply overlays the non-empty fields of the file onto d
func (f *DraftFile) apply(d *skills.Draft) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&d.Category, f.Category)
	set(&d.Language, f.Language)
	set(&d.Name, f.Name)
	set(&d.BuildCode, f.BuildCode)
	set(&d.DesignCode, f.DesignCode)
	set(&d.ConfigCode, f.ConfigCode)
	set(&d.Image, f.Image)
}

func draftFileSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&DraftFile{})
}
