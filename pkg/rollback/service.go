package rollback

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillcms/pkg/gateway"
	"github.com/jingkaihe/skillcms/pkg/history"
	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/telemetry"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

var (
	// ErrUnavailable is returned when the latest and target commits are not both resolved
	ErrUnavailable = errors.New("rollback needs the latest commit and one older commit")
	// ErrNotLatest is returned when the commit given as latest is not the head
	ErrNotLatest = errors.New("commit is not the latest revision")
	// ErrTargetIsLatest is returned when rolling back to the head itself
	ErrTargetIsLatest = errors.New("cannot roll back to the latest revision")
)

// Plan is a prepared rollback: both revisions are loaded and the change can be reviewed
type Plan struct {
	Identity skills.Identity
	Pair     *history.Pair
}

// Changelog is the changelog the rollback commit will carry. It always names the target.
func (p *Plan) Changelog() string { return ChangelogPrefix + p.Target().Commit.ID }

// Latest is the current head revision
func (p *Plan) Latest() skills.Revision { return p.Pair.New }

// Target is the revision being restored
func (p *Plan) Target() skills.Revision { return p.Pair.Old }

// Diff shows what the rollback changes, head to target
func (p *Plan) Diff() string {
	reverse := history.Pair{Old: p.Pair.New, New: p.Pair.Old}
	return reverse.Unified()
}

// Result describes an accepted rollback
type Result struct {
	Identity      skills.Identity
	TargetID      string
	CanonicalPath string
}

// Service prepares and submits rollbacks through a gateway
type Service struct {
	gateway    gateway.Gateway
	comparator *history.Comparator
	model      string
}

// NewService creates a rollback service. An empty model means skills.DefaultModel.
func NewService(gw gateway.Gateway, model string) *Service {
	return &Service{
		gateway:    gw,
		comparator: history.NewComparator(gw, model),
		model:      model,
	}
}

// Prepare loads the head and the target revision. An empty latestID means
// the current head. Histories with fewer than two commits cannot be rolled back.
func (s *Service) Prepare(ctx context.Context, id skills.Identity, latestID, targetID string) (*Plan, error) {
	id = id.Normalized()

	commits, err := s.comparator.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if history.AvailabilityOf(commits) != history.AvailabilityComparable {
		return nil, errors.Wrap(ErrUnavailable, history.ErrNoComparison.Error())
	}

	head := commits[0].ID
	if latestID == "" {
		latestID = head
	}
	if latestID != head {
		return nil, errors.Wrapf(ErrNotLatest, "commit %s, head is %s", latestID, head)
	}
	if targetID == latestID {
		return nil, ErrTargetIsLatest
	}

	pair, err := s.comparator.CompareIn(ctx, id, commits, latestID, targetID)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Identity: id,
		Pair:     pair,
	}, nil
}

// Submit publishes the plan's target content as the new head
func (s *Service) Submit(ctx context.Context, plan *Plan) (*Result, error) {
	if plan == nil || plan.Pair == nil {
		return nil, ErrUnavailable
	}
	if auth, ok := s.gateway.(gateway.Authenticator); ok && !auth.Authenticated() {
		return nil, skills.ErrNotAuthenticated
	}

	target := plan.Target()
	payload, err := Compose(plan.Latest().Content, target.Content, target.Commit.ID, plan.Identity, s.model)
	if err != nil {
		return nil, err
	}

	log := logger.G(ctx).WithField("skill", plan.Identity.String()).WithField("target", target.Commit.ID)
	err = telemetry.WithSpan(ctx, "rollback.submit", func(ctx context.Context) error {
		resp, err := s.gateway.Modify(ctx, payload)
		if err != nil {
			return err
		}
		return resp.Err("rollback")
	}, attribute.String("skill", plan.Identity.String()), attribute.String("target", target.Commit.ID))
	if err != nil {
		log.WithError(err).Warn("rollback failed")
		return nil, err
	}

	log.Info("rollback published")
	return &Result{
		Identity:      plan.Identity,
		TargetID:      target.Commit.ID,
		CanonicalPath: plan.Identity.CanonicalPath(),
	}, nil
}
