package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/sections"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// PageOptions configures how pages are assembled and cached.
type PageOptions struct {
	TTL           time.Duration
	AlwaysVisible []string
}

type BiositeService struct {
	repo  ports.BiositeRepository
	cache ports.PageCache
	opts  PageOptions
	log   logrus.FieldLogger

	fetches singleflight.Group

	// generations counts invalidations per biosite. A page built under an
	// older generation is never cached.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewBiositeService(repo ports.BiositeRepository, cache ports.PageCache, logger logrus.FieldLogger, opts PageOptions) *BiositeService {
	return &BiositeService{
		repo:  repo,
		cache: cache,
		opts:  opts,
		log:   logger.WithField("component", "biosite_service"),

		generations: make(map[string]uint64),
	}
}

func (s *BiositeService) CreateBiosite(ctx context.Context, title, slug, description string) (*domain.Biosite, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, domain.Invalid("slug must be lowercase letters, digits, '-' or '_'")
	}

	existing, err := s.repo.GetBiositeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Invalid("slug already exists")
	}

	now := time.Now().UTC()
	biosite := &domain.Biosite{
		ID:          uuid.NewString(),
		Title:       title,
		Slug:        slug,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateBiosite(ctx, biosite); err != nil {
		return nil, err
	}
	return biosite, nil
}

func (s *BiositeService) GetBiosite(ctx context.Context, id string) (*domain.Biosite, error) {
	biosite, err := s.repo.GetBiosite(ctx, id)
	if err != nil {
		return nil, err
	}
	if biosite == nil {
		return nil, domain.NotFound("biosite")
	}
	return biosite, nil
}

func (s *BiositeService) GetBiositeBySlug(ctx context.Context, slug string) (*domain.Biosite, error) {
	biosite, err := s.repo.GetBiositeBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, err
	}
	if biosite == nil {
		return nil, domain.NotFound("biosite")
	}
	return biosite, nil
}

func (s *BiositeService) UpdateBiosite(ctx context.Context, id, title, slug, description string) (*domain.Biosite, error) {
	biosite, err := s.GetBiosite(ctx, id)
	if err != nil {
		return nil, err
	}

	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug != "" && slug != biosite.Slug {
		if !slugPattern.MatchString(slug) {
			return nil, domain.Invalid("slug must be lowercase letters, digits, '-' or '_'")
		}
		existing, err := s.repo.GetBiositeBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.Invalid("slug already exists")
		}
		biosite.Slug = slug
	}
	if title != "" {
		biosite.Title = title
	}
	biosite.Description = description
	biosite.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateBiosite(ctx, biosite); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, id)
	return biosite, nil
}

func (s *BiositeService) DeleteBiosite(ctx context.Context, id string) error {
	if _, err := s.GetBiosite(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteBiosite(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx, id)
	return nil
}

func (s *BiositeService) ListBiosites(ctx context.Context, page, limit int, search string) ([]domain.Biosite, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	filters := map[string]interface{}{}
	if search != "" {
		filters["search"] = search
	}
	return s.repo.ListBiosites(ctx, limit, (page-1)*limit, filters)
}

// Snapshot reads the links and sections of a biosite concurrently. Concurrent
// callers for the same biosite share one read until the biosite is next
// invalidated. A caller whose ctx ends stops waiting; the shared read goes on
// for the others.
func (s *BiositeService) Snapshot(ctx context.Context, biositeID string) (*domain.Snapshot, error) {
	key := fmt.Sprintf("%s@%d", biositeID, s.generation(biositeID))
	ch := s.fetches.DoChan(key, func() (interface{}, error) {
		var snap domain.Snapshot
		g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
		g.Go(func() error {
			links, err := s.repo.ListLinks(gctx, biositeID)
			snap.Links = links
			return errors.Wrap(err, "fetch links")
		})
		g.Go(func() error {
			secs, err := s.repo.ListSections(gctx, biositeID)
			snap.Sections = secs
			return errors.Wrap(err, "fetch sections")
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "waiting for snapshot")
	}
}

// Report runs a full assembler pass over a fresh snapshot.
func (s *BiositeService) Report(ctx context.Context, biositeID string) (sections.Report, error) {
	snap, err := s.Snapshot(ctx, biositeID)
	if err != nil {
		return sections.Report{}, err
	}
	report := sections.AssembleReport(snap.Links, snap.Sections, sections.Options{AlwaysVisible: s.opts.AlwaysVisible})
	for _, d := range report.Dropped {
		s.log.WithFields(logrus.Fields{
			"biosite_id": biositeID,
			"link_id":    d.Link.ID,
			"category":   d.Category,
			"reason":     d.Reason,
		}).Debug("link left out of grouping")
	}
	return report, nil
}

func (s *BiositeService) Grouping(ctx context.Context, biositeID string) (domain.SectionGrouping, error) {
	if _, err := s.GetBiosite(ctx, biositeID); err != nil {
		return domain.SectionGrouping{}, err
	}
	report, err := s.Report(ctx, biositeID)
	if err != nil {
		return domain.SectionGrouping{}, err
	}
	return report.Grouping, nil
}

// Page returns the public page for slug, served from the page cache when
// possible.
func (s *BiositeService) Page(ctx context.Context, slug string) (*domain.Page, error) {
	biosite, err := s.GetBiositeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	log := s.log.WithField("biosite_id", biosite.ID)

	if s.cache != nil {
		page, ok, err := s.cache.Get(ctx, biosite.ID)
		if err != nil {
			log.WithError(err).Warn("page cache read failed")
		} else if ok {
			return page, nil
		}
	}

	gen := s.generation(biosite.ID)
	page, err := s.build(ctx, biosite)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.store(ctx, log, biosite.ID, gen, page)
	}
	return page, nil
}

// store caches page unless the biosite was invalidated after gen. An
// invalidation racing the write removes the entry again.
func (s *BiositeService) store(ctx context.Context, log logrus.FieldLogger, biositeID string, gen uint64, page *domain.Page) {
	if s.generation(biositeID) != gen {
		log.Debug("page changed while building, not cached")
		return
	}
	if err := s.cache.Set(ctx, biositeID, page, s.opts.TTL); err != nil {
		log.WithError(err).Warn("page cache write failed")
		return
	}
	if s.generation(biositeID) != gen {
		s.dropCached(ctx, biositeID)
	}
}

// Preview assembles the page for the owner without touching the cache.
func (s *BiositeService) Preview(ctx context.Context, biositeID string) (*domain.Page, error) {
	biosite, err := s.GetBiosite(ctx, biositeID)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, biosite)
}

func (s *BiositeService) build(ctx context.Context, biosite *domain.Biosite) (*domain.Page, error) {
	report, err := s.Report(ctx, biosite.ID)
	if err != nil {
		return nil, err
	}
	page := sections.BuildPage(*biosite, report.Grouping)
	return &page, nil
}

func (s *BiositeService) generation(biositeID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[biositeID]
}

// Invalidate drops the cached page of a biosite.
func (s *BiositeService) Invalidate(ctx context.Context, biositeID string) {
	s.mu.Lock()
	s.generations[biositeID]++
	s.mu.Unlock()
	s.dropCached(ctx, biositeID)
}

func (s *BiositeService) dropCached(ctx context.Context, biositeID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, biositeID); err != nil {
		s.log.WithError(err).WithField("biosite_id", biositeID).Warn("page cache invalidation failed")
	}
}

var _ ports.BiositeService = (*BiositeService)(nil)
