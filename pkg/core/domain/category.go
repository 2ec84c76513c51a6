package domain

import "strings"

// Category is the semantic kind of a link. It is derived, never persisted
// except as the optional LinkType hint on a Link.
type Category string

const (
	CategorySocial     Category = "social"
	CategoryRegular    Category = "regular"
	CategoryApp        Category = "app"
	CategoryWhatsApp   Category = "whatsapp"
	CategoryMusic      Category = "music"
	CategoryVideo      Category = "video"
	CategorySocialPost Category = "social_post"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategorySocial,
	CategoryRegular,
	CategoryApp,
	CategoryWhatsApp,
	CategoryMusic,
	CategoryVideo,
	CategorySocialPost,
}

// ParseCategory normalizes a stored link_type tag. Unknown or empty tags
// return false so callers fall back to heuristics.
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "social":
		return CategorySocial, true
	case "regular", "link", "links":
		return CategoryRegular, true
	case "app":
		return CategoryApp, true
	case "whatsapp":
		return CategoryWhatsApp, true
	case "music":
		return CategoryMusic, true
	case "video":
		return CategoryVideo, true
	case "social_post", "socialpost":
		return CategorySocialPost, true
	}
	return "", false
}

// IsSingleton reports whether sections of this category render a single embed.
func (c Category) IsSingleton() bool {
	switch c {
	case CategoryMusic, CategoryVideo, CategorySocialPost:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }
