package profile

import (
	"context"
	"fmt"

	"github.com/jonwraymond/sidenav/observe"
	"github.com/jonwraymond/sidenav/reqctx"
)

// ContextResolver supplies the memoized request context.
type ContextResolver interface {
	Resolve(ctx context.Context) reqctx.RequestContext
}

// Selection is the outcome of profile selection.
type Selection struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Settings    map[string]any `json:"settings"`
	IsFallback  bool           `json:"is_fallback"`
	Priority    int            `json:"priority"`
	Specificity int            `json:"specificity"`
}

// Evaluation reports how one profile fared during selection.
type Evaluation struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Origin      Origin `json:"origin"`
	Enabled     bool   `json:"enabled"`
	Matched     bool   `json:"matched"`
	Priority    int    `json:"priority"`
	Specificity int    `json:"specificity"`
	Winner      bool   `json:"winner"`
}

// Explanation is a full selection trace.
type Explanation struct {
	Context     *reqctx.RequestContext `json:"context,omitempty"`
	Selection   Selection              `json:"selection"`
	Evaluations []Evaluation           `json:"evaluations"`
}

// Selector picks the best matching profile for a request.
//
// Contract:
// - Determinism: for a fixed context and profile set the same id is chosen.
// - Ordering: priority descending, then specificity descending; remaining
// ties keep the first profile in declaration order.
// - Errors: a failing Options read is returned; a failing Profiles read is
// logged and yields the default.
type Selector struct {
	repo   Repository
	logger observe.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithLogger sets the selector's logger.
func WithLogger(l observe.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSelector creates a Selector over repo.
func NewSelector(repo Repository, opts ...SelectorOption) (*Selector, error) {
	if repo == nil {
		return nil, ErrNilRepository
	}
	s := &Selector{repo: repo, logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Select returns the winning profile, or the default with IsFallback set
// when nothing matches. The context is resolved only when profiles exist.
func (s *Selector) Select(ctx context.Context, res ContextResolver) (Selection, error) {
	exp, err := s.evaluate(ctx, res, false)
	if err != nil {
		return Selection{}, err
	}
	return exp.Selection, nil
}

// Explain runs selection and reports every profile's evaluation.
func (s *Selector) Explain(ctx context.Context, res ContextResolver) (Explanation, error) {
	return s.evaluate(ctx, res, true)
}

func (s *Selector) evaluate(ctx context.Context, res ContextResolver, trace bool) (Explanation, error) {
	defaults, err := s.repo.Options(ctx)
	if err != nil {
		return Explanation{}, fmt.Errorf("profile: load options: %w", err)
	}

	result := Selection{
		ID:         DefaultID,
		Label:      DefaultID,
		Settings:   StripProfiles(defaults),
		IsFallback: true,
	}
	exp := Explanation{Selection: result}

	raws, err := s.repo.Profiles(ctx)
	if err != nil {
		s.logger.Warn(ctx, "profile repository unavailable", observe.F("error", err))
		return exp, nil
	}
	if len(raws) == 0 {
		raws = EmbeddedProfiles(defaults)
	}
	profiles := Normalize(raws)
	if len(profiles) == 0 {
		return exp, nil
	}

	rc := res.Resolve(ctx)
	if trace {
		exp.Context = &rc
	}

	var best *Profile
	bestSpec := 0
	winner := -1
	for i := range profiles {
		p := &profiles[i]
		spec := p.Conditions.Specificity()
		ev := Evaluation{
			ID:          p.ID,
			Label:       p.Label,
			Origin:      p.Origin,
			Enabled:     p.Enabled,
			Priority:    p.Priority,
			Specificity: spec,
		}
		if p.Enabled && p.Conditions.Matches(rc) {
			ev.Matched = true
			if best == nil || p.Priority > best.Priority ||
				(p.Priority == best.Priority && spec > bestSpec) {
				best, bestSpec, winner = p, spec, i
			}
		}
		if trace {
			exp.Evaluations = append(exp.Evaluations, ev)
		}
	}

	if best == nil {
		return exp, nil
	}
	if trace {
		exp.Evaluations[winner].Winner = true
	}
	exp.Selection = Selection{
		ID:          best.ID,
		Label:       best.Label,
		Settings:    Merge(defaults, best.Settings),
		Priority:    best.Priority,
		Specificity: bestSpec,
	}
	s.logger.Debug(ctx, "profile selected",
		observe.F("profile", best.ID),
		observe.F("priority", best.Priority),
		observe.F("specificity", bestSpec))
	return exp, nil
}
