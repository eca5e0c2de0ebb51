// Package templates discovers bot templates a new editing session can start
// from. A template is a directory holding a TEMPLATE.md file whose YAML
// frontmatter describes it and whose body is the starting build code.
package templates

// Template is a discovered bot template
type Template struct {
	ID          string // Unique id from frontmatter
	Name        string // Display name
	Description string
	Category    string // Suggested skill group, may be empty
	Language    string // Suggested language code, may be empty
	Directory   string // Full path to the template directory
	Code        string // TEMPLATE.md body, without frontmatter
}
