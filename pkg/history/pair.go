package history

import (
	"github.com/aymanbagabas/go-udiff"

	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// Pair is two revisions of the same skill, the older one on the left
type Pair struct {
	Old skills.Revision
	New skills.Revision
}

// Left is the older revision
func (p *Pair) Left() skills.Revision { return p.Old }

// Right is the newer revision
func (p *Pair) Right() skills.Revision { return p.New }

// Unified renders the pair as a unified diff, old to new
func (p *Pair) Unified() string {
	return udiff.Unified("commit "+p.Old.Commit.ID, "commit "+p.New.Commit.ID, p.Old.Content, p.New.Content)
}

// Changed reports whether the two contents differ
func (p *Pair) Changed() bool {
	return p.Old.Content != p.New.Content
}
