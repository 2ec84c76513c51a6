package classifier

import (
	"path"
	"strings"
)

// Canonical icon identifiers that carry meaning beyond a platform name.
const (
	IconMusicEmbed = "music-embed"
	IconVideoEmbed = "video-embed"
	IconSocialPost = "social-post"
	IconWhatsApp   = "whatsapp"
	IconAppStore   = "appstore"
	IconGooglePlay = "googleplay"
	IconLink       = "link"
)

var sentinelIcons = map[string]bool{
	IconMusicEmbed: true,
	IconVideoEmbed: true,
	IconSocialPost: true,
	IconWhatsApp:   true,
	IconAppStore:   true,
	IconGooglePlay: true,
	IconLink:       true,
}

type iconPath struct {
	path string
	id   string
}

// iconPaths maps bundled asset paths to identifiers. Matching is by substring
// so CDN prefixes and query strings do not break the lookup.
var iconPaths = []iconPath{
	{"/assets/icons/instagram.svg", "instagram"},
	{"/assets/icons/facebook.svg", "facebook"},
	{"/assets/icons/tiktok.svg", "tiktok"},
	{"/assets/icons/twitter.svg", "twitter"},
	{"/assets/icons/x.svg", "x"},
	{"/assets/icons/linkedin.svg", "linkedin"},
	{"/assets/icons/youtube.svg", "youtube"},
	{"/assets/icons/twitch.svg", "twitch"},
	{"/assets/icons/snapchat.svg", "snapchat"},
	{"/assets/icons/pinterest.svg", "pinterest"},
	{"/assets/icons/threads.svg", "threads"},
	{"/assets/icons/discord.svg", "discord"},
	{"/assets/icons/github.svg", "github"},
	{"/assets/icons/telegram.svg", "telegram"},
	{"/assets/icons/behance.svg", "behance"},
	{"/assets/icons/whatsapp.svg", IconWhatsApp},
	{"/assets/icons/music.svg", IconMusicEmbed},
	{"/assets/icons/spotify.svg", IconMusicEmbed},
	{"/assets/icons/video.svg", IconVideoEmbed},
	{"/assets/icons/post.svg", IconSocialPost},
	{"/assets/icons/appstore.svg", IconAppStore},
	{"/assets/icons/googleplay.svg", IconGooglePlay},
	{"/assets/icons/link.svg", IconLink},
}

// ResolveIcon maps a stored icon reference to its canonical identifier.
// Unknown references fall back to the lower-cased file name without its
// extension, and empty ones to "link".
func ResolveIcon(iconRef string) string {
	ref := strings.TrimSpace(iconRef)
	if sentinelIcons[ref] {
		return ref
	}
	for _, p := range iconPaths {
		if strings.Contains(ref, p.path) {
			return p.id
		}
	}

	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	base := path.Base(ref)
	if base == "." || base == "/" {
		return IconLink
	}
	name := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
	if name == "" {
		return IconLink
	}
	return name
}
