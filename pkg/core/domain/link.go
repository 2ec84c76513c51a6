package domain

import "time"

// Link is a single item attached to a biosite
type Link struct {
	ID         string    `json:"id"`
	BiositeID  string    `json:"biosite_id"`
	Label      string    `json:"label"`
	URL        string    `json:"url"`
	Icon       string    `json:"icon"`
	LinkType   string    `json:"link_type,omitempty"` // optional Category hint
	Image      string    `json:"image,omitempty"`
	Color      string    `json:"color,omitempty"`
	IsActive   bool      `json:"is_active"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WhatsAppContact is the phone/message pair carried by a click-to-chat URL
type WhatsAppContact struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Complete reports whether both phone and message are present.
func (c WhatsAppContact) Complete() bool {
	return c.Phone != "" && c.Message != ""
}

// OrderUpdate is one entry of a reorder batch
type OrderUpdate struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
}
