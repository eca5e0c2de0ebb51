package history

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// ErrStale is returned for a comparison that finished after a newer one was requested
var ErrStale = errors.New("comparison superseded by a newer request")

// Request names the two commits a view should show
type Request struct {
	Identity skills.Identity
	A        string
	B        string
}

func (r Request) same(other Request) bool {
	return r.Identity.Equal(other.Identity) && r.A == other.A && r.B == other.B
}

// View holds the comparison currently on screen. Only the result of the most
// recent request is kept; late results for older requests are dropped.
type View struct {
	comparator *Comparator

	mu      sync.Mutex
	seq     uint64
	current Request
	pair    *Pair
}

// NewView creates an empty view
func NewView(c *Comparator) *View {
	return &View{comparator: c}
}

// Load requests a comparison and waits for it. The view shows nothing until
// both sides are fetched.
func (v *View) Load(ctx context.Context, req Request) (*Pair, error) {
	v.mu.Lock()
	v.seq++
	ticket := v.seq
	v.current = req
	v.pair = nil
	v.mu.Unlock()

	pair, err := v.comparator.Compare(ctx, req.Identity, req.A, req.B)

	v.mu.Lock()
	defer v.mu.Unlock()
	if ticket != v.seq || !v.current.same(req) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	v.pair = pair
	return pair, nil
}

// Pair returns the pair on screen, if both sides are ready
func (v *View) Pair() (*Pair, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pair, v.pair != nil
}

// Reset clears the view and drops any in-flight result
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	v.current = Request{}
	v.pair = nil
}
