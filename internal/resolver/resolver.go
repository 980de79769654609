// Package resolver turns a partial guest name into family groups.
//
// A keyword is matched against every attending guest. Each match is mapped
// to its anchor (the "self" guest who represents the family) and the
// distinct anchors are then expanded to full families. Two limits guard the
// lookup: a hard cap on raw matched rows, and an ambiguity threshold on the
// number of distinct families.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"wedding-seatbot/internal/intent"
	"wedding-seatbot/internal/metrics"
	"wedding-seatbot/internal/models"
)

const (
	DefaultRowCap             = 30
	DefaultAmbiguityThreshold = 1

	// UnknownRepresentative labels a family whose rows could not be loaded.
	UnknownRepresentative = "(未知代表人)"
)

// GuestStore is the read-only query surface the resolver needs
type GuestStore interface {
	SearchAttending(ctx context.Context, keyword string) ([]models.GuestRecord, error)
	FamilyByAnchor(ctx context.Context, anchor string) ([]models.GuestRecord, error)
}

// Policy holds the two independent lookup limits
type Policy struct {
	// RowCap is the most matched rows accepted before giving up.
	RowCap int
	// AmbiguityThreshold is the most distinct families one keyword may match.
	AmbiguityThreshold int
}

// DefaultPolicy returns the limits used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		RowCap:             DefaultRowCap,
		AmbiguityThreshold: DefaultAmbiguityThreshold,
	}
}

type Resolver struct {
	store  GuestStore
	policy Policy
	log    zerolog.Logger
}

// New creates a resolver. Non-positive limits fall back to the defaults.
func New(store GuestStore, policy Policy, logger zerolog.Logger) *Resolver {
	if policy.RowCap <= 0 {
		policy.RowCap = DefaultRowCap
	}
	if policy.AmbiguityThreshold <= 0 {
		policy.AmbiguityThreshold = DefaultAmbiguityThreshold
	}
	return &Resolver{
		store:  store,
		policy: policy,
		log:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve looks keyword up. An empty keyword means "no keyword". Store
// failures are returned as errors; every lookup outcome is a status.
func (r *Resolver) Resolve(ctx context.Context, keyword string) (models.Result, error) {
	res, err := r.resolve(ctx, keyword)
	if err == nil {
		metrics.Resolutions.WithLabelValues(string(res.Status)).Inc()
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, keyword string) (models.Result, error) {
	if !intent.ValidKeywordLength(keyword) {
		return models.Result{Status: models.StatusTooShort}, nil
	}

	rows, err := r.store.SearchAttending(ctx, keyword)
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to search guests: %w", err)
	}
	if len(rows) == 0 {
		return models.Result{Status: models.StatusNotFound}, nil
	}
	if len(rows) > r.policy.RowCap {
		r.log.Debug().Int("rows", len(rows)).Int("cap", r.policy.RowCap).Msg("Too many matched rows")
		return models.Result{Status: models.StatusTooMany}, nil
	}

	anchors := r.anchorsOf(rows)
	if len(anchors) > r.policy.AmbiguityThreshold {
		r.log.Debug().Int("families", len(anchors)).Int("threshold", r.policy.AmbiguityThreshold).Msg("Ambiguous keyword")
		return models.Result{Status: models.StatusTooMany}, nil
	}

	bundles := make([]models.FamilyBundle, 0, len(anchors))
	for _, anchor := range anchors {
		family, err := r.store.FamilyByAnchor(ctx, anchor)
		if err != nil {
			return models.Result{}, fmt.Errorf("failed to load family: %w", err)
		}
		bundles = append(bundles, BuildBundle(anchor, family))
	}

	return models.Result{Status: models.StatusOK, Bundles: bundles}, nil
}

// anchorsOf maps matched rows to distinct anchors in first-seen order
func (r *Resolver) anchorsOf(rows []models.GuestRecord) []string {
	seen := make(map[string]bool, len(rows))
	anchors := make([]string, 0, len(rows))
	for _, row := range rows {
		anchor, linked := row.AnchorCode()
		if !linked {
			r.log.Warn().
				Str("guest_code", row.GuestCode).
				Str("relation_role", string(row.RelationRole)).
				Msg("Dependent guest has no representative, treating it as its own family")
		}
		if seen[anchor] {
			continue
		}
		seen[anchor] = true
		anchors = append(anchors, anchor)
	}
	return anchors
}

// BuildBundle orders a family by role then name and picks its label: the
// self member, else the first member, else UnknownRepresentative.
func BuildBundle(anchor string, family []models.GuestRecord) models.FamilyBundle {
	members := make([]models.GuestRecord, len(family))
	copy(members, family)
	sort.SliceStable(members, func(i, j int) bool {
		ri, rj := members[i].RelationRole.Rank(), members[j].RelationRole.Rank()
		if ri != rj {
			return ri < rj
		}
		return members[i].ShowName() < members[j].ShowName()
	})

	who := UnknownRepresentative
	if len(members) > 0 {
		who = members[0].ShowName()
	}
	for _, m := range members {
		if m.RelationRole == models.RoleSelf {
			who = m.ShowName()
			break
		}
	}

	return models.FamilyBundle{
		AnchorCode: anchor,
		Who:        who,
		Members:    members,
	}
}
