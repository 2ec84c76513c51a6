package services

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/reorder"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/sections"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

// ReorderService runs owner reorders through a reorder.Coordinator and acts
// as the coordinator's store.
type ReorderService struct {
	repo        ports.BiositeRepository
	opts        sections.Options
	log         logrus.FieldLogger
	invalidator Invalidator
	coord       *reorder.Coordinator
}

func NewReorderService(repo ports.BiositeRepository, logger logrus.FieldLogger, opts sections.Options, invalidator Invalidator) *ReorderService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	s := &ReorderService{
		repo:        repo,
		opts:        opts,
		log:         logger.WithField("component", "reorder_service"),
		invalidator: invalidator,
	}
	s.coord = reorder.NewCoordinator(s, logger)
	return s
}

func (s *ReorderService) ReorderSections(ctx context.Context, biositeID string, from, to int) ([]reorder.Item, error) {
	return s.run(ctx, reorder.Scope{Kind: reorder.ScopeSections, BiositeID: biositeID}, from, to)
}

func (s *ReorderService) ReorderSectionLinks(ctx context.Context, biositeID, title string, from, to int) ([]reorder.Item, error) {
	return s.run(ctx, reorder.Scope{Kind: reorder.ScopeSectionLinks, BiositeID: biositeID, Section: title}, from, to)
}

func (s *ReorderService) run(ctx context.Context, scope reorder.Scope, from, to int) ([]reorder.Item, error) {
	b, err := s.repo.GetBiosite(ctx, scope.BiositeID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NotFound("biosite")
	}

	items, err := s.coord.Reorder(ctx, scope, from, to)
	if items != nil {
		s.invalidator.Invalidate(ctx, scope.BiositeID)
	}
	return items, err
}

// Invalidate drops the biosite's local reorder state after edits made
// outside a reorder.
func (s *ReorderService) Invalidate(_ context.Context, biositeID string) {
	s.coord.Forget(biositeID)
}

// Fetch reads the current order of scope from the repository.
func (s *ReorderService) Fetch(ctx context.Context, scope reorder.Scope) ([]reorder.Item, error) {
	switch scope.Kind {
	case reorder.ScopeSections:
		raw, err := s.repo.ListSections(ctx, scope.BiositeID)
		if err != nil {
			return nil, err
		}
		canonical := sections.Dedupe(raw)
		items := make([]reorder.Item, len(canonical))
		for i, sec := range canonical {
			items[i] = reorder.Item{ID: sec.ID, OrderIndex: i}
		}
		return items, nil

	case reorder.ScopeSectionLinks:
		links, err := s.sectionLinks(ctx, scope)
		if err != nil {
			return nil, err
		}
		items := make([]reorder.Item, len(links))
		for i, l := range links {
			items[i] = reorder.Item{ID: l.Link.ID, OrderIndex: i}
		}
		return items, nil
	}
	return nil, reorder.ErrUnknownScope
}

// Persist writes batch. Section positions are stored as is. Links share one
// order_index space across the biosite, so a section's links are written
// back into the slots they already occupied.
func (s *ReorderService) Persist(ctx context.Context, scope reorder.Scope, batch []domain.OrderUpdate) error {
	switch scope.Kind {
	case reorder.ScopeSections:
		return s.repo.UpdateSectionOrders(ctx, batch)

	case reorder.ScopeSectionLinks:
		links, err := s.repo.ListLinks(ctx, scope.BiositeID)
		if err != nil {
			return err
		}
		current := make(map[string]int, len(links))
		for _, l := range links {
			current[l.ID] = l.OrderIndex
		}

		slots := make([]int, 0, len(batch))
		for _, u := range batch {
			idx, ok := current[u.ID]
			if !ok {
				return domain.NotFound("link")
			}
			slots = append(slots, idx)
		}
		sort.Ints(slots)
		for i := 1; i < len(slots); i++ {
			if slots[i] <= slots[i-1] {
				slots[i] = slots[i-1] + 1
			}
		}

		out := make([]domain.OrderUpdate, len(batch))
		for i, u := range batch {
			out[i] = domain.OrderUpdate{ID: u.ID, OrderIndex: slots[i]}
		}
		return s.repo.UpdateLinkOrders(ctx, out)
	}
	return reorder.ErrUnknownScope
}

func (s *ReorderService) sectionLinks(ctx context.Context, scope reorder.Scope) ([]domain.GroupedLink, error) {
	snap, err := s.repo.Dump(ctx, scope.BiositeID)
	if err != nil {
		return nil, err
	}
	grouping := sections.Assemble(snap.Links, snap.Sections, s.opts)
	want := strings.ToLower(strings.TrimSpace(scope.Section))
	for _, title := range grouping.Titles() {
		if strings.ToLower(strings.TrimSpace(title)) == want {
			return grouping.Links(title), nil
		}
	}
	return nil, domain.NotFound("section")
}

var _ reorder.Store = (*ReorderService)(nil)
var _ ports.ReorderService = (*ReorderService)(nil)
