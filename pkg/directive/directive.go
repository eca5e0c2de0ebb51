// Package directive reads and writes the single-line "::key value"
// directives embedded in skill scripts.
package directive

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Well-known directive keys
const (
	KeyImage       = "image"
	KeyAuthorEmail = "author_email"
	KeyProtected   = "protected"
	KeyName        = "name"
)

// ErrNotFound is returned when the content has no line for the requested key
var ErrNotFound = errors.New("directive not found")

// Directive is a single "::key value" line
type Directive struct {
	Key   string
	Value string
}

func (d Directive) String() string {
	return "::" + d.Key + " " + d.Value
}

func pattern(key string) *regexp.Regexp {
	// the value must be non-blank and on the same line as the key
	return regexp.MustCompile(`(?m)^::` + regexp.QuoteMeta(key) + `[ \t]+(\S.*?)\r?$`)
}

// Extract returns the value of the first line starting with "::key ".
// Matching is case-sensitive and anchored to the start of a line. A key
// with a blank value does not count as present.
func Extract(content, key string) (string, error) {
	if key == "" {
		return "", errors.New("directive key cannot be empty")
	}

	m := pattern(key).FindStringSubmatch(content)
	if m == nil {
		return "", errors.Wrapf(ErrNotFound, "::%s", key)
	}

	return strings.TrimRight(m[1], "\r"), nil
}

// Prepend puts the directives in front of content, in the order given, one per line.
// Existing directives in content are left untouched.
func Prepend(content string, directives ...Directive) string {
	if len(directives) == 0 {
		return content
	}

	var b strings.Builder
	for _, d := range directives {
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	b.WriteString(content)
	return b.String()
}

// Strip removes every line carrying one of the given directive keys
func Strip(content string, keys ...string) string {
	if len(keys) == 0 {
		return content
	}

	lines := strings.SplitAfter(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !hasKey(line, keys) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "")
}

func hasKey(line string, keys []string) bool {
	if !strings.HasPrefix(line, "::") {
		return false
	}
	for _, key := range keys {
		rest, ok := strings.CutPrefix(line, "::"+key)
		if !ok {
			continue
		}
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\r' || rest[0] == '\n' {
			return true
		}
	}
	return false
}
