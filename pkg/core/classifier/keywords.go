package classifier

// Keyword tables, matched against lower-cased label and URL text.
var (
	appStoreTerms = []string{
		"apps.apple.com", "itunes.apple.com", "play.google.com",
		"app store", "appstore", "google play", "googleplay", "play store",
	}

	musicDomains = []string{
		"open.spotify.com", "spotify.com", "spotify.link", "soundcloud.com",
		"music.apple.com", "podcasts.apple.com", "deezer.com", "music.youtube.com",
		"tidal.com", "bandcamp.com", "anchor.fm", "audiomack.com",
	}
	musicWords = []string{"music", "música", "musica", "podcast"}

	videoDomains = []string{
		"youtube.com/watch", "youtube.com/shorts/", "youtube.com/embed/", "youtu.be/",
		"vimeo.com", "dailymotion.com", "twitch.tv/videos/",
	}
	videoWords = []string{"video", "vídeo"}

	// Matched against the label only.
	postWords = []string{"post", "publicacion", "publicación", "contenido"}

	instagramPostPaths = []string{
		"instagram.com/p/", "instagram.com/reel/", "instagram.com/reels/", "instagram.com/tv/",
	}
)

// socialPlatforms maps a platform identifier (icon id and display name) to
// the hosts it is served from.
var socialPlatforms = map[string][]string{
	"instagram": {"instagram.com", "instagr.am"},
	"facebook":  {"facebook.com", "fb.com", "fb.me"},
	"tiktok":    {"tiktok.com"},
	"twitter":   {"twitter.com"},
	"x":         {"x.com"},
	"linkedin":  {"linkedin.com"},
	"youtube":   {"youtube.com"},
	"twitch":    {"twitch.tv"},
	"snapchat":  {"snapchat.com"},
	"pinterest": {"pinterest.com", "pin.it"},
	"threads":   {"threads.net"},
	"discord":   {"discord.com", "discord.gg"},
	"github":    {"github.com"},
	"telegram":  {"t.me", "telegram.me"},
	"behance":   {"behance.net"},
}
