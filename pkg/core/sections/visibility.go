package sections

import "github.com/wadjakorntonsri/go-biosite/pkg/core/domain"

// VisibleBuckets returns the buckets that should render: those with links
// and those flagged always-visible, in canonical order.
func VisibleBuckets(g domain.SectionGrouping) []domain.SectionBucket {
	var out []domain.SectionBucket
	for _, b := range g.Buckets() {
		if len(b.Links) > 0 || b.AlwaysVisible {
			out = append(out, b)
		}
	}
	return out
}

// Visible returns the sections of VisibleBuckets.
func Visible(g domain.SectionGrouping) []domain.Section {
	buckets := VisibleBuckets(g)
	out := make([]domain.Section, len(buckets))
	for i, b := range buckets {
		out[i] = b.Section
	}
	return out
}

// BuildPage renders the visible part of a grouping for a biosite.
func BuildPage(b domain.Biosite, g domain.SectionGrouping) domain.Page {
	page := domain.Page{Biosite: b, Sections: []domain.PageSection{}}
	for _, bucket := range VisibleBuckets(g) {
		links := bucket.Links
		if links == nil {
			links = []domain.GroupedLink{}
		}
		page.Sections = append(page.Sections, domain.PageSection{
			Section:   bucket.Section,
			Singleton: bucket.Singleton,
			Links:     links,
		})
	}
	return page
}
