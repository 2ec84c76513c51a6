package domain

import "time"

// Biosite represents a public link-in-bio profile
type Biosite struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Page is the rendered view of a biosite: visible sections in canonical order
type Page struct {
	Biosite  Biosite       `json:"biosite"`
	Sections []PageSection `json:"sections"`
}

// PageSection is one visible section with its member links
type PageSection struct {
	Section   Section       `json:"section"`
	Singleton bool          `json:"singleton"`
	Links     []GroupedLink `json:"links"`
}

// Snapshot is a consistent read of a biosite's links and sections
type Snapshot struct {
	Links    []Link
	Sections []Section
}
