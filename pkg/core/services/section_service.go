package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/sections"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

// DefaultSectionTitles are created by SeedDefaults, in render order.
var DefaultSectionTitles = []string{"Social", "Links", "Contactame", "Music", "Video", "Social Post", "App", "VCard"}

type SectionService struct {
	repo        ports.BiositeRepository
	log         logrus.FieldLogger
	invalidator Invalidator
}

func NewSectionService(repo ports.BiositeRepository, logger logrus.FieldLogger, invalidator Invalidator) *SectionService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &SectionService{
		repo:        repo,
		log:         logger.WithField("component", "section_service"),
		invalidator: invalidator,
	}
}

// CreateSection appends a section after the existing ones.
func (s *SectionService) CreateSection(ctx context.Context, biositeID, title string) (*domain.Section, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.Invalid("section title is required")
	}
	current, err := s.ListSections(ctx, biositeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	section := domain.Section{
		ID:        uuid.NewString(),
		BiositeID: biositeID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}.WithOrder(nextSectionOrder(current))

	if err := s.repo.CreateSection(ctx, &section); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, biositeID)
	return &section, nil
}

func (s *SectionService) UpdateSection(ctx context.Context, biositeID, id, title string, isSelected *bool) (*domain.Section, error) {
	section, err := s.repo.GetSection(ctx, id)
	if err != nil {
		return nil, err
	}
	if section == nil || section.BiositeID != biositeID {
		return nil, domain.NotFound("section")
	}

	if t := strings.TrimSpace(title); t != "" {
		section.Title = t
	}
	if isSelected != nil {
		section.IsSelected = *isSelected
	}
	section.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateSection(ctx, section); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, biositeID)
	return section, nil
}

func (s *SectionService) DeleteSection(ctx context.Context, biositeID, id string) error {
	section, err := s.repo.GetSection(ctx, id)
	if err != nil {
		return err
	}
	if section == nil || section.BiositeID != biositeID {
		return domain.NotFound("section")
	}
	if err := s.repo.DeleteSection(ctx, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, biositeID)
	return nil
}

// ListSections returns the canonical sections: one per title, in render order.
func (s *SectionService) ListSections(ctx context.Context, biositeID string) ([]domain.Section, error) {
	b, err := s.repo.GetBiosite(ctx, biositeID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NotFound("biosite")
	}
	raw, err := s.repo.ListSections(ctx, biositeID)
	if err != nil {
		return nil, err
	}
	return sections.Dedupe(raw), nil
}

// SeedDefaults creates DefaultSectionTitles for a biosite that has no
// sections yet. Existing sections are returned untouched.
func (s *SectionService) SeedDefaults(ctx context.Context, biositeID string) ([]domain.Section, error) {
	current, err := s.ListSections(ctx, biositeID)
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		return current, nil
	}

	now := time.Now().UTC()
	created := make([]domain.Section, 0, len(DefaultSectionTitles))
	for i, title := range DefaultSectionTitles {
		section := domain.Section{
			ID:        uuid.NewString(),
			BiositeID: biositeID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		}.WithOrder(i)
		if err := s.repo.CreateSection(ctx, &section); err != nil {
			return nil, err
		}
		created = append(created, section)
	}
	s.log.WithField("biosite_id", biositeID).Info("seeded default sections")
	s.invalidator.Invalidate(ctx, biositeID)
	return created, nil
}

func nextSectionOrder(current []domain.Section) int {
	next := 0
	for _, sec := range current {
		if i, ok := sec.Order(); ok && i >= next {
			next = i + 1
		}
	}
	return next
}

var _ ports.SectionService = (*SectionService)(nil)
