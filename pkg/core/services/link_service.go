package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/classifier"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/sections"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

type LinkService struct {
	repo        ports.BiositeRepository
	log         logrus.FieldLogger
	invalidator Invalidator
}

func NewLinkService(repo ports.BiositeRepository, logger logrus.FieldLogger, invalidator Invalidator) *LinkService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &LinkService{
		repo:        repo,
		log:         logger.WithField("component", "link_service"),
		invalidator: invalidator,
	}
}

func (s *LinkService) CreateLink(ctx context.Context, biositeID string, in ports.LinkInput) (*domain.Link, error) {
	if err := s.requireBiosite(ctx, biositeID); err != nil {
		return nil, err
	}
	if err := validateLinkInput(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListLinks(ctx, biositeID)
	if err != nil {
		return nil, err
	}
	next := 0
	for _, l := range existing {
		if l.OrderIndex >= next {
			next = l.OrderIndex + 1
		}
	}

	now := time.Now().UTC()
	link := &domain.Link{
		ID:         uuid.NewString(),
		BiositeID:  biositeID,
		IsActive:   true,
		OrderIndex: next,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyLinkInput(link, in)

	if err := s.repo.CreateLink(ctx, link); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, biositeID)
	return link, nil
}

// CreateWhatsAppLink stores a click-to-chat link built from a phone number
// and a prefilled message.
func (s *LinkService) CreateWhatsAppLink(ctx context.Context, biositeID, label, phone, message string) (*domain.Link, error) {
	if strings.TrimSpace(phone) == "" || strings.TrimSpace(message) == "" {
		return nil, domain.Invalid("whatsapp links need a phone and a message")
	}
	if label == "" {
		label = "WhatsApp"
	}
	return s.CreateLink(ctx, biositeID, ports.LinkInput{
		Label:    label,
		URL:      classifier.BuildWhatsAppURL(phone, message),
		Icon:     classifier.IconWhatsApp,
		LinkType: string(domain.CategoryWhatsApp),
	})
}

// UpdateLink applies the non-empty fields of in.
func (s *LinkService) UpdateLink(ctx context.Context, biositeID, id string, in ports.LinkInput) (*domain.Link, error) {
	link, err := s.getOwned(ctx, biositeID, id)
	if err != nil {
		return nil, err
	}
	if in.URL != "" {
		if err := validateURL(in.URL); err != nil {
			return nil, err
		}
	}
	if in.LinkType != "" {
		if _, ok := domain.ParseCategory(in.LinkType); !ok {
			return nil, domain.Invalid("unknown link type " + in.LinkType)
		}
	}

	applyLinkInput(link, in)
	link.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateLink(ctx, link); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, biositeID)
	return link, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, biositeID, id string) error {
	if _, err := s.getOwned(ctx, biositeID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteLink(ctx, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, biositeID)
	return nil
}

func (s *LinkService) ListLinks(ctx context.Context, biositeID string) ([]domain.Link, error) {
	if err := s.requireBiosite(ctx, biositeID); err != nil {
		return nil, err
	}
	return s.repo.ListLinks(ctx, biositeID)
}

// ClassifyLink explains where the assembler would put a stored link.
func (s *LinkService) ClassifyLink(ctx context.Context, biositeID, id string) (*ports.Classification, error) {
	link, err := s.getOwned(ctx, biositeID, id)
	if err != nil {
		return nil, err
	}
	secs, err := s.repo.ListSections(ctx, biositeID)
	if err != nil {
		return nil, err
	}

	cat, rule := classifier.ClassifyWithRule(*link)
	out := &ports.Classification{
		Category:   cat,
		Rule:       rule,
		Icon:       classifier.ResolveIcon(link.Icon),
		Assignable: classifier.Assignable(*link, cat),
	}
	if cat == domain.CategoryWhatsApp {
		contact := classifier.ParseWhatsApp(link.URL)
		out.WhatsApp = &contact
		out.Assignable = out.Assignable && contact.Complete()
	}
	if out.Assignable {
		out.Section, _ = sections.Match(cat, *link, sections.Dedupe(secs))
	}
	return out, nil
}

func (s *LinkService) requireBiosite(ctx context.Context, biositeID string) error {
	b, err := s.repo.GetBiosite(ctx, biositeID)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.NotFound("biosite")
	}
	return nil
}

func (s *LinkService) getOwned(ctx context.Context, biositeID, id string) (*domain.Link, error) {
	link, err := s.repo.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil || link.BiositeID != biositeID {
		return nil, domain.NotFound("link")
	}
	return link, nil
}

func validateLinkInput(in ports.LinkInput) error {
	if strings.TrimSpace(in.Label) == "" {
		return domain.Invalid("label is required")
	}
	if err := validateURL(in.URL); err != nil {
		return err
	}
	if in.LinkType != "" {
		if _, ok := domain.ParseCategory(in.LinkType); !ok {
			return domain.Invalid("unknown link type " + in.LinkType)
		}
	}
	return nil
}

func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Invalid("url is required")
	}
	if _, err := url.Parse(raw); err != nil {
		return domain.Invalid("url is malformed")
	}
	return nil
}

func applyLinkInput(link *domain.Link, in ports.LinkInput) {
	if in.Label != "" {
		link.Label = in.Label
	}
	if in.URL != "" {
		link.URL = strings.TrimSpace(in.URL)
	}
	if in.Icon != "" {
		link.Icon = in.Icon
	}
	if in.LinkType != "" {
		c, _ := domain.ParseCategory(in.LinkType)
		link.LinkType = string(c)
	}
	if in.Image != "" {
		link.Image = in.Image
	}
	if in.Color != "" {
		link.Color = in.Color
	}
	if in.IsActive != nil {
		link.IsActive = *in.IsActive
	}
}

var _ ports.LinkService = (*LinkService)(nil)
