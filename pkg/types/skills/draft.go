package skills

import "time"

// Draft is an unpublished working copy of a bot. It is stored as one
// opaque object by the draft store.
type Draft struct {
	Category   string `json:"category" yaml:"category" jsonschema:"description=Skill group the bot is published under"`
	Language   string `json:"language" yaml:"language" jsonschema:"description=Two letter language code"`
	Name       string `json:"name" yaml:"name" jsonschema:"description=Bot name; whitespace becomes underscores on publish"`
	BuildCode  string `json:"buildCode" yaml:"buildCode" jsonschema:"description=Skill script body"`
	DesignCode string `json:"designCode" yaml:"designCode" jsonschema:"description=Design directives"`
	ConfigCode string `json:"configCode" yaml:"configCode" jsonschema:"description=Configuration directives"`
	Image      string `json:"image" yaml:"image" jsonschema:"description=Image path such as images/bot.png"`
}

// DraftSummary describes a stored draft without its body
type DraftSummary struct {
	ID        string    `json:"id" db:"id"`
	Owner     string    `json:"owner" db:"owner"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	Language  string    `json:"language" db:"language"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
