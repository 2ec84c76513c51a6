// Package classifier infers the semantic category of a link from its stored
// fields. Every function here is pure: the result depends only on the link's
// LinkType, Icon, Label and URL.
package classifier

import (
	"net/url"
	"strings"

	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
)

// signals are the normalized inputs every rule reads.
type signals struct {
	explicit    domain.Category
	hasExplicit bool
	icon        string
	label       string
	url         string
	host        string
}

func newSignals(link domain.Link) signals {
	s := signals{
		icon:  ResolveIcon(link.Icon),
		label: strings.ToLower(strings.TrimSpace(link.Label)),
		url:   strings.ToLower(strings.TrimSpace(link.URL)),
	}
	s.explicit, s.hasExplicit = domain.ParseCategory(link.LinkType)
	s.host = hostOf(s.url)
	return s
}

func (s signals) text() []string { return []string{s.label, s.url} }

// rule is one step of the classification cascade.
type rule struct {
	name  string
	match func(s signals) (domain.Category, bool)
}

// rules run in order and the first match wins. WhatsApp precedes the
// explicit tag because many WhatsApp links were stored tagged as social.
var rules = []rule{
	{"whatsapp", matchWhatsApp},
	{"explicit-type", matchExplicit},
	{"app-store", fixed(domain.CategoryApp, isApp)},
	{"music", fixed(domain.CategoryMusic, isMusic)},
	{"video", fixed(domain.CategoryVideo, isVideo)},
	{"social-post", fixed(domain.CategorySocialPost, isSocialPost)},
	{"social", fixed(domain.CategorySocial, isSocial)},
}

// DefaultRule names the fallback when no rule matches.
const DefaultRule = "default-regular"

// RuleNames returns the cascade in evaluation order.
func RuleNames() []string {
	names := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		names = append(names, r.name)
	}
	return append(names, DefaultRule)
}

// Classify returns exactly one category for link.
func Classify(link domain.Link) domain.Category {
	c, _ := ClassifyWithRule(link)
	return c
}

// ClassifyWithRule returns the category and the name of the rule that decided it.
func ClassifyWithRule(link domain.Link) (domain.Category, string) {
	s := newSignals(link)
	for _, r := range rules {
		if c, ok := r.match(s); ok {
			return c, r.name
		}
	}
	return domain.CategoryRegular, DefaultRule
}

// IsValidRegular reports whether link may be shown as a plain link. A link
// that mentions any embed, store or WhatsApp signal is not, even when no
// other rule claimed it.
func IsValidRegular(link domain.Link) bool {
	return validRegular(newSignals(link))
}

// Assignable reports whether a link of category c may be placed in a section.
func Assignable(link domain.Link, c domain.Category) bool {
	if c != domain.CategoryRegular {
		return true
	}
	return IsValidRegular(link)
}

func fixed(c domain.Category, pred func(signals) bool) func(signals) (domain.Category, bool) {
	return func(s signals) (domain.Category, bool) {
		return c, pred(s)
	}
}

func matchWhatsApp(s signals) (domain.Category, bool) {
	return domain.CategoryWhatsApp, s.icon == IconWhatsApp || strings.Contains(s.url, WhatsAppHost)
}

func matchExplicit(s signals) (domain.Category, bool) {
	if !s.hasExplicit {
		return "", false
	}
	if s.explicit == domain.CategoryRegular && !validRegular(s) {
		return "", false
	}
	return s.explicit, true
}

func isApp(s signals) bool {
	return s.icon == IconAppStore || s.icon == IconGooglePlay || anyContains(s.text(), appStoreTerms)
}

func isMusic(s signals) bool {
	return s.icon == IconMusicEmbed ||
		anyContains(s.text(), musicDomains) ||
		anyContains(s.text(), musicWords)
}

func isVideo(s signals) bool {
	return s.icon == IconVideoEmbed ||
		anyContains(s.text(), videoDomains) ||
		anyContains(s.text(), videoWords)
}

func isSocialPost(s signals) bool {
	return s.icon == IconSocialPost ||
		containsAny(s.label, postWords) ||
		containsAny(s.url, instagramPostPaths)
}

// isSocial matches by icon, host or exact platform name. A YouTube channel
// lands here because watch URLs were already taken by isVideo.
func isSocial(s signals) bool {
	if _, ok := socialPlatforms[s.icon]; ok {
		return true
	}
	if _, ok := socialPlatforms[s.label]; ok {
		return true
	}
	for _, hosts := range socialPlatforms {
		for _, h := range hosts {
			if s.host == h || strings.HasSuffix(s.host, "."+h) {
				return true
			}
		}
	}
	return false
}

func validRegular(s signals) bool {
	text := s.text()
	switch {
	case strings.Contains(s.url, WhatsAppHost),
		anyContains(text, appStoreTerms),
		anyContains(text, musicDomains),
		anyContains(text, musicWords),
		anyContains(text, videoDomains),
		anyContains(text, videoWords),
		anyContains(text, postWords),
		containsAny(s.url, instagramPostPaths):
		return false
	}
	return true
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func anyContains(texts []string, subs []string) bool {
	for _, t := range texts {
		if containsAny(t, subs) {
			return true
		}
	}
	return false
}
