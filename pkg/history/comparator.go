// Package history lists a skill's commits and pairs two of them for
// comparison. Text diffing itself is delegated to go-udiff.
package history

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillcms/pkg/gateway"
	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/telemetry"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

var (
	// ErrNoComparison is returned when the history has fewer than two commits
	ErrNoComparison = errors.New("no comparison available")
	// ErrCommitNotInHistory is returned when a requested commit is not part of the skill's history
	ErrCommitNotInHistory = errors.New("commit is not part of the skill history")
	// ErrSameCommit is returned when both sides of a comparison name the same commit
	ErrSameCommit = errors.New("a comparison needs two different commits")
)

// Availability is what a history supports
type Availability int

// Availability levels, by number of commits
const (
	AvailabilityNone Availability = iota
	AvailabilityHistoryOnly
	AvailabilityComparable
)

func (a Availability) String() string {
	switch a {
	case AvailabilityHistoryOnly:
		return "history-only"
	case AvailabilityComparable:
		return "comparable"
	default:
		return "none"
	}
}

// AvailabilityOf reports whether commits can be listed or compared
func AvailabilityOf(commits []skills.Commit) Availability {
	switch {
	case len(commits) >= 2:
		return AvailabilityComparable
	case len(commits) == 1:
		return AvailabilityHistoryOnly
	default:
		return AvailabilityNone
	}
}

// Comparator fetches commit history and content through a gateway
type Comparator struct {
	gateway gateway.Gateway
	model   string
}

// NewComparator creates a comparator. An empty model means skills.DefaultModel.
func NewComparator(gw gateway.Gateway, model string) *Comparator {
	return &Comparator{gateway: gw, model: model}
}

// ListHistory returns the skill's commits newest first, with only the first flagged latest
func (c *Comparator) ListHistory(ctx context.Context, id skills.Identity) ([]skills.Commit, error) {
	resp, err := c.gateway.History(ctx, gateway.LocatorFor(id.Normalized(), c.model))
	if err != nil {
		return nil, err
	}
	if err := resp.Err("history"); err != nil {
		return nil, err
	}
	return skills.MarkLatest(resp.Commits), nil
}

// FetchAt returns the skill content at commitID
func (c *Comparator) FetchAt(ctx context.Context, id skills.Identity, commitID string) (skills.Revision, error) {
	resp, err := c.gateway.ContentAt(ctx, gateway.LocatorFor(id.Normalized(), c.model), commitID)
	if err != nil {
		return skills.Revision{}, err
	}
	if err := resp.Err("contentAt"); err != nil {
		return skills.Revision{}, err
	}
	return skills.Revision{
		Content: resp.File,
		Commit: skills.Commit{
			ID:     commitID,
			Date:   resp.CommitDate,
			Author: resp.Author,
		},
	}, nil
}

// Compare pairs the content of two commits. Both fetches run concurrently and
// the pair is returned only when both succeed. The older commit is always on
// the left, whichever order a and b are given in.
func (c *Comparator) Compare(ctx context.Context, id skills.Identity, a, b string) (*Pair, error) {
	commits, err := c.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.CompareIn(ctx, id, commits, a, b)
}

// CompareIn is Compare against an already listed history
func (c *Comparator) CompareIn(ctx context.Context, id skills.Identity, commits []skills.Commit, a, b string) (*Pair, error) {
	if AvailabilityOf(commits) != AvailabilityComparable {
		return nil, ErrNoComparison
	}
	if a == b {
		return nil, ErrSameCommit
	}

	ia, ib := indexOf(commits, a), indexOf(commits, b)
	if ia < 0 {
		return nil, errors.Wrapf(ErrCommitNotInHistory, "commit %s", a)
	}
	if ib < 0 {
		return nil, errors.Wrapf(ErrCommitNotInHistory, "commit %s", b)
	}

	// newest first, so the higher index is older
	older, newer := commits[ia], commits[ib]
	if ib > ia {
		older, newer = newer, older
	}

	var pair Pair
	err := telemetry.WithSpan(ctx, "history.compare", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rev, err := c.FetchAt(gctx, id, older.ID)
			pair.Old = rev
			return err
		})
		g.Go(func() error {
			rev, err := c.FetchAt(gctx, id, newer.ID)
			pair.New = rev
			return err
		})
		return g.Wait()
	}, attribute.String("old", older.ID), attribute.String("new", newer.ID))
	if err != nil {
		logger.G(ctx).WithError(err).WithField("skill", id.String()).Warn("comparison failed")
		return nil, err
	}

	pair.Old.Commit = merge(older, pair.Old.Commit)
	pair.New.Commit = merge(newer, pair.New.Commit)
	return &pair, nil
}

func indexOf(commits []skills.Commit, id string) int {
	for i, c := range commits {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// merge keeps the history entry and fills what the content call knows better
func merge(listed, fetched skills.Commit) skills.Commit {
	if listed.Author == "" {
		listed.Author = fetched.Author
	}
	if listed.Date.IsZero() {
		listed.Date = fetched.Date
	}
	return listed
}
