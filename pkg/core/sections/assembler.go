package sections

import (
	"sort"
	"strings"

	"github.com/wadjakorntonsri/go-biosite/pkg/core/classifier"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
)

// DefaultAlwaysVisible lists title keywords of sections shown even when empty.
var DefaultAlwaysVisible = []string{"vcard", "contact card", "tarjeta"}

// Options tunes an assembler pass.
type Options struct {
	// AlwaysVisible holds lower-case keywords; a section whose title contains
	// one is kept visible with zero links. Nil means DefaultAlwaysVisible.
	AlwaysVisible []string
}

// DropReason explains why an active link is missing from the grouping.
type DropReason string

const (
	DropNoSection          DropReason = "no-section"
	DropInvalidRegular     DropReason = "invalid-regular"
	DropIncompleteWhatsApp DropReason = "incomplete-whatsapp"
	DropSingletonFull      DropReason = "singleton-full"
)

// Dropped records an active link left out of the grouping.
type Dropped struct {
	Link     domain.Link
	Category domain.Category
	Reason   DropReason
}

// Report is the full outcome of an assembler pass.
type Report struct {
	Grouping domain.SectionGrouping
	Dropped  []Dropped
}

// Assemble groups the active links into the canonical sections.
func Assemble(links []domain.Link, sections []domain.Section, opts Options) domain.SectionGrouping {
	return AssembleReport(links, sections, opts).Grouping
}

// AssembleReport is Assemble plus the list of links it dropped. Inputs are
// never modified.
func AssembleReport(links []domain.Link, sections []domain.Section, opts Options) Report {
	canonical := Dedupe(sections)
	always := opts.AlwaysVisible
	if always == nil {
		always = DefaultAlwaysVisible
	}

	buckets := make([]domain.SectionBucket, len(canonical))
	index := make(map[string]int, len(canonical))
	for i, s := range canonical {
		cat, _ := SectionCategory(s.Title)
		buckets[i] = domain.SectionBucket{
			Section:       s,
			Category:      cat,
			Singleton:     cat.IsSingleton(),
			AlwaysVisible: containsKeyword(s.Title, always),
		}
		index[s.Title] = i
	}

	var dropped []Dropped
	drop := func(l domain.Link, c domain.Category, r DropReason) {
		dropped = append(dropped, Dropped{Link: l, Category: c, Reason: r})
	}

	for _, l := range activeInOrder(links) {
		cat := classifier.Classify(l)
		if !classifier.Assignable(l, cat) {
			drop(l, cat, DropInvalidRegular)
			continue
		}

		entry := domain.GroupedLink{Link: l, Category: cat, Icon: classifier.ResolveIcon(l.Icon)}
		if cat == domain.CategoryWhatsApp {
			contact := classifier.ParseWhatsApp(l.URL)
			if !contact.Complete() {
				drop(l, cat, DropIncompleteWhatsApp)
				continue
			}
			entry.WhatsApp = &contact
		}

		title, ok := Match(cat, l, canonical)
		if !ok {
			drop(l, cat, DropNoSection)
			continue
		}
		b := &buckets[index[title]]
		if b.Singleton && len(b.Links) > 0 {
			drop(l, cat, DropSingletonFull)
			continue
		}
		b.Links = append(b.Links, entry)
	}

	return Report{Grouping: domain.NewSectionGrouping(buckets), Dropped: dropped}
}

// Dedupe collapses sections sharing a title (case-insensitive), keeping the
// most recently updated record, and sorts the survivors by OrderIndex.
// Sections without an order go last; ties keep input order. Blank titles are
// discarded.
func Dedupe(sections []domain.Section) []domain.Section {
	type candidate struct {
		section domain.Section
		pos     int
	}
	byKey := make(map[string]candidate, len(sections))
	for i, s := range sections {
		key := normalize(s.Title)
		if key == "" {
			continue
		}
		prev, seen := byKey[key]
		if !seen || s.UpdatedAt.After(prev.section.UpdatedAt) {
			byKey[key] = candidate{section: s, pos: i}
		}
	}

	out := make([]candidate, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, hasI := out[i].section.Order()
		oj, hasJ := out[j].section.Order()
		switch {
		case hasI != hasJ:
			return hasI
		case hasI && oi != oj:
			return oi < oj
		}
		return out[i].pos < out[j].pos
	})

	result := make([]domain.Section, len(out))
	for i, c := range out {
		result[i] = c.section
	}
	return result
}

func activeInOrder(links []domain.Link) []domain.Link {
	active := make([]domain.Link, 0, len(links))
	for _, l := range links {
		if l.IsActive {
			active = append(active, l)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].OrderIndex < active[j].OrderIndex
	})
	return active
}

func containsKeyword(title string, keywords []string) bool {
	t := normalize(title)
	for _, k := range keywords {
		if k != "" && strings.Contains(t, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
