// Package sections groups classified links into a biosite's named sections.
package sections

import (
	"strings"
	"unicode"

	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
)

type synonymSet struct {
	category domain.Category
	words    []string
}

// synonymTable is ordered from most to least specific so that a title like
// "Social Post" is not read as "Social" and "WhatsApp" is not read as "App".
var synonymTable = []synonymSet{
	{domain.CategorySocialPost, []string{"social post", "socialpost", "publicación", "publicacion"}},
	{domain.CategoryWhatsApp, []string{"contactame", "contáctame", "contacto", "whatsapp"}},
	{domain.CategoryMusic, []string{"music", "música", "musica", "podcast"}},
	{domain.CategoryVideo, []string{"video", "vídeo"}},
	{domain.CategoryApp, []string{"app", "aplicación", "aplicacion"}},
	{domain.CategorySocial, []string{"social", "redes"}},
	{domain.CategoryRegular, []string{"links", "enlaces"}},
}

// Synonyms returns the title keywords for category c.
func Synonyms(c domain.Category) []string {
	for _, s := range synonymTable {
		if s.category == c {
			return append([]string(nil), s.words...)
		}
	}
	return nil
}

// SectionCategory returns the category a section title stands for, if any.
// Synonyms match whole words of the title, plurals included, so "Happy links"
// is a links section and "Videos musicales" a video one.
func SectionCategory(title string) (domain.Category, bool) {
	words := tokenize(title)
	if len(words) == 0 {
		return "", false
	}
	for _, s := range synonymTable {
		for _, w := range s.words {
			if containsPhrase(words, tokenize(w)) {
				return s.category, true
			}
		}
	}
	return "", false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsPhrase reports whether phrase occurs as consecutive words.
func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if !sameWord(words[i+j], p) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func sameWord(word, synonym string) bool {
	return word == synonym || word == synonym+"s" || word == synonym+"es"
}

// Match picks the section title for a link of category c. It returns false
// when no section fits; such links are dropped rather than defaulted.
//
// Priority: a title equal to the link's label, then a title carrying one of
// the category's synonyms, then for regular links a partial label/title match.
func Match(c domain.Category, link domain.Link, sections []domain.Section) (string, bool) {
	label := normalize(link.Label)

	if label != "" {
		for _, s := range sections {
			if normalize(s.Title) == label {
				return s.Title, true
			}
		}
	}

	for _, s := range sections {
		if sc, ok := SectionCategory(s.Title); ok && sc == c {
			return s.Title, true
		}
	}

	// Partial matches only consider sections not claimed by another category.
	if c == domain.CategoryRegular && label != "" {
		for _, s := range sections {
			t := normalize(s.Title)
			if t == "" {
				continue
			}
			if sc, ok := SectionCategory(t); ok && sc != domain.CategoryRegular {
				continue
			}
			if strings.Contains(t, label) || strings.Contains(label, t) {
				return s.Title, true
			}
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
