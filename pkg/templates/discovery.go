package templates

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const templateFileName = "TEMPLATE.md"

// Discovery finds templates in a list of directories. Earlier directories win
// when two templates share an id.
type Discovery struct {
	dirs []string
}

// Option configures a Discovery
type Option func(*Discovery) error

// WithDirs sets the template directories
func WithDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.dirs = dirs
		return nil
	}
}

// WithDefaultDirs uses ./.skillcms/templates then ~/.skillcms/templates
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.dirs = []string{
			"./.skillcms/templates",
			filepath.Join(homeDir, ".skillcms", "templates"),
		}
		return nil
	}
}

// NewDiscovery creates a template discovery. Without options the default dirs are used.
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}
	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs()}
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Discover returns every valid template keyed by id. Templates may be nested
// at any depth below a directory, so dirs can group them by category.
// Unreadable directories and malformed templates are skipped.
func (d *Discovery) Discover() map[string]*Template {
	found := make(map[string]*Template)
	for _, dir := range d.dirs {
		matches, err := doublestar.Glob(os.DirFS(dir), "**/"+templateFileName, doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		sort.Strings(matches)

		for _, match := range matches {
			tmpl, err := load(filepath.Join(dir, filepath.FromSlash(match)))
			if err != nil {
				continue
			}
			if _, exists := found[tmpl.ID]; !exists {
				tmpl.Directory = filepath.Join(dir, filepath.FromSlash(path.Dir(match)))
				found[tmpl.ID] = tmpl
			}
		}
	}
	return found
}

// Get returns the template with the given id
func (d *Discovery) Get(id string) (*Template, error) {
	tmpl, ok := d.Discover()[id]
	if !ok {
		return nil, errors.Errorf("template '%s' not found", id)
	}
	return tmpl, nil
}

// List returns templates whose id matches pattern, sorted by id. An empty
// pattern matches everything.
func (d *Discovery) List(pattern string) ([]*Template, error) {
	return Filter(d.Discover(), pattern)
}

// Filter selects templates whose id matches the glob pattern, sorted by id
func Filter(found map[string]*Template, pattern string) ([]*Template, error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, errors.Wrapf(err, "invalid template pattern %q", pattern)
	}

	out := make([]*Template, 0, len(found))
	for id, tmpl := range found {
		if g.Match(id) {
			out = append(out, tmpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func load(path string) (*Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read template file")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	fm := meta.Get(pctx)
	if fm == nil {
		return nil, errors.New("missing frontmatter")
	}

	tmpl := &Template{
		ID:          stringField(fm, "id"),
		Name:        stringField(fm, "name"),
		Description: stringField(fm, "description"),
		Category:    stringField(fm, "category"),
		Language:    stringField(fm, "language"),
		Code:        body(string(content)),
	}
	if tmpl.ID == "" {
		return nil, errors.New("template id is required in frontmatter")
	}
	if tmpl.Name == "" {
		tmpl.Name = tmpl.ID
	}
	return tmpl, nil
}

func stringField(fm map[string]any, key string) string {
	v, _ := fm[key].(string)
	return strings.TrimSpace(v)
}

func body(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
		}
	}
	return content
}
