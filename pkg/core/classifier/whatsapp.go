package classifier

import (
	"net/url"
	"strings"

	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
)

// WhatsAppHost is the click-to-chat API host.
const WhatsAppHost = "api.whatsapp.com"

const maxDecodeRounds = 10

// ParseWhatsApp extracts the phone and message from a click-to-chat URL.
// Malformed input yields empty fields rather than an error.
func ParseWhatsApp(rawURL string) domain.WhatsAppContact {
	var contact domain.WhatsAppContact
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return contact
	}

	// The text parameter is decoded by hand: the stored query may be encoded
	// more than once and url.Query would stop after the first pass.
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key, value, _ := strings.Cut(pair, "=")
		switch key {
		case "phone":
			contact.Phone = cleanPhone(decodeFully(value, url.PathUnescape))
		case "text":
			contact.Message = strings.TrimSpace(decodeFully(value, url.QueryUnescape))
		}
	}
	return contact
}

// BuildWhatsAppURL produces a click-to-chat URL for phone and message.
func BuildWhatsAppURL(phone, message string) string {
	q := url.Values{}
	q.Set("phone", cleanPhone(phone))
	q.Set("text", message)
	return "https://" + WhatsAppHost + "/send?" + q.Encode()
}

func cleanPhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeFully applies unescape until s stops changing. Phones use path
// unescaping so a literal '+' survives.
func decodeFully(s string, unescape func(string) (string, error)) string {
	for i := 0; i < maxDecodeRounds; i++ {
		next, err := unescape(s)
		if err != nil || next == s {
			return s
		}
		s = next
	}
	return s
}
