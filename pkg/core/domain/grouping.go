package domain

import (
	"bytes"
	"encoding/json"
)

// GroupedLink is a link placed into a section by the assembler
type GroupedLink struct {
	Link     Link             `json:"link"`
	Category Category         `json:"category"`
	Icon     string           `json:"icon_id"`
	WhatsApp *WhatsAppContact `json:"whatsapp,omitempty"`
}

// SectionBucket holds the links assigned to one canonical section.
type SectionBucket struct {
	Section       Section
	Category      Category // empty when the title names no known category
	Singleton     bool
	AlwaysVisible bool
	Links         []GroupedLink
}

// SectionGrouping maps section titles to their buckets and keeps insertion
// order, which is the render order. The zero value is an empty grouping.
type SectionGrouping struct {
	order   []string
	buckets map[string]SectionBucket
}

// NewSectionGrouping builds a grouping from buckets already in render order.
// A later bucket with a title seen before replaces the earlier one in place.
func NewSectionGrouping(buckets []SectionBucket) SectionGrouping {
	g := SectionGrouping{
		order:   make([]string, 0, len(buckets)),
		buckets: make(map[string]SectionBucket, len(buckets)),
	}
	for _, b := range buckets {
		title := b.Section.Title
		if _, ok := g.buckets[title]; !ok {
			g.order = append(g.order, title)
		}
		b.Links = append([]GroupedLink(nil), b.Links...)
		g.buckets[title] = b
	}
	return g
}

func (g SectionGrouping) Len() int { return len(g.order) }

// Titles returns the section titles in render order.
func (g SectionGrouping) Titles() []string {
	return append([]string(nil), g.order...)
}

// Get returns the bucket for title.
func (g SectionGrouping) Get(title string) (SectionBucket, bool) {
	b, ok := g.buckets[title]
	if ok {
		b.Links = append([]GroupedLink(nil), b.Links...)
	}
	return b, ok
}

// Links returns the links of a section, or nil if it does not exist.
func (g SectionGrouping) Links(title string) []GroupedLink {
	b, _ := g.Get(title)
	return b.Links
}

// Buckets returns copies of all buckets in render order.
func (g SectionGrouping) Buckets() []SectionBucket {
	out := make([]SectionBucket, 0, len(g.order))
	for _, title := range g.order {
		b, _ := g.Get(title)
		out = append(out, b)
	}
	return out
}

// MarshalJSON encodes the grouping as an object whose keys follow render order.
func (g SectionGrouping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, title := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(title)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		links := g.buckets[title].Links
		if links == nil {
			links = []GroupedLink{}
		}
		valueBytes, err := json.Marshal(links)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
