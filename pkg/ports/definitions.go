package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/reorder"
)

// BiositeRepository defines storage operations for biosites, their links and sections
type BiositeRepository interface {
	CreateBiosite(ctx context.Context, biosite *domain.Biosite) error
	GetBiosite(ctx context.Context, id string) (*domain.Biosite, error)
	GetBiositeBySlug(ctx context.Context, slug string) (*domain.Biosite, error)
	UpdateBiosite(ctx context.Context, biosite *domain.Biosite) error
	DeleteBiosite(ctx context.Context, id string) error
	ListBiosites(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Biosite, error)

	// Links
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLink(ctx context.Context, id string) (*domain.Link, error)
	UpdateLink(ctx context.Context, link *domain.Link) error
	DeleteLink(ctx context.Context, id string) error
	ListLinks(ctx context.Context, biositeID string) ([]domain.Link, error)
	UpdateLinkOrders(ctx context.Context, batch []domain.OrderUpdate) error

	// Sections
	CreateSection(ctx context.Context, section *domain.Section) error
	GetSection(ctx context.Context, id string) (*domain.Section, error)
	UpdateSection(ctx context.Context, section *domain.Section) error
	DeleteSection(ctx context.Context, id string) error
	ListSections(ctx context.Context, biositeID string) ([]domain.Section, error)
	UpdateSectionOrders(ctx context.Context, batch []domain.OrderUpdate) error

	// Dump returns every link and section of a biosite, inactive ones included
	Dump(ctx context.Context, biositeID string) (*domain.Snapshot, error)
}

// PageCache stores rendered public pages keyed by biosite ID
type PageCache interface {
	Get(ctx context.Context, biositeID string) (*domain.Page, bool, error)
	Set(ctx context.Context, biositeID string, page *domain.Page, ttl time.Duration) error
	Invalidate(ctx context.Context, biositeID string) error
}

// BiositeService defines business logic for biosites and their rendered pages
type BiositeService interface {
	CreateBiosite(ctx context.Context, title, slug, description string) (*domain.Biosite, error)
	GetBiosite(ctx context.Context, id string) (*domain.Biosite, error)
	GetBiositeBySlug(ctx context.Context, slug string) (*domain.Biosite, error)
	UpdateBiosite(ctx context.Context, id, title, slug, description string) (*domain.Biosite, error)
	DeleteBiosite(ctx context.Context, id string) error
	ListBiosites(ctx context.Context, page, limit int, search string) ([]domain.Biosite, error)

	Grouping(ctx context.Context, biositeID string) (domain.SectionGrouping, error)
	Page(ctx context.Context, slug string) (*domain.Page, error)
	Preview(ctx context.Context, biositeID string) (*domain.Page, error)
}

// LinkInput carries the editable fields of a link
type LinkInput struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
	LinkType string `json:"link_type,omitempty"`
	Image    string `json:"image,omitempty"`
	Color    string `json:"color,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// Classification explains how a link was categorized
type Classification struct {
	Category   domain.Category         `json:"category"`
	Rule       string                  `json:"rule"`
	Icon       string                  `json:"icon_id"`
	Assignable bool                    `json:"assignable"`
	Section    string                  `json:"section,omitempty"`
	WhatsApp   *domain.WhatsAppContact `json:"whatsapp,omitempty"`
}

// LinkService defines the business logic operations for links
type LinkService interface {
	CreateLink(ctx context.Context, biositeID string, in LinkInput) (*domain.Link, error)
	CreateWhatsAppLink(ctx context.Context, biositeID, label, phone, message string) (*domain.Link, error)
	UpdateLink(ctx context.Context, biositeID, id string, in LinkInput) (*domain.Link, error)
	DeleteLink(ctx context.Context, biositeID, id string) error
	ListLinks(ctx context.Context, biositeID string) ([]domain.Link, error)
	ClassifyLink(ctx context.Context, biositeID, id string) (*Classification, error)
}

// SectionService defines business logic for sections
type SectionService interface {
	CreateSection(ctx context.Context, biositeID, title string) (*domain.Section, error)
	UpdateSection(ctx context.Context, biositeID, id, title string, isSelected *bool) (*domain.Section, error)
	DeleteSection(ctx context.Context, biositeID, id string) error
	ListSections(ctx context.Context, biositeID string) ([]domain.Section, error)
	SeedDefaults(ctx context.Context, biositeID string) ([]domain.Section, error)
}

// ReorderService defines the reorder operations exposed to owners
type ReorderService interface {
	ReorderSections(ctx context.Context, biositeID string, from, to int) ([]reorder.Item, error)
	ReorderSectionLinks(ctx context.Context, biositeID, title string, from, to int) ([]reorder.Item, error)
}
