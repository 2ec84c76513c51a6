package domain

import "time"

// Section is a named, ordered bucket of links configured per biosite
type Section struct {
	ID         string    `json:"id"`
	BiositeID  string    `json:"biosite_id"`
	Title      string    `json:"titulo"`
	OrderIndex *int      `json:"order_index,omitempty"` // nil sorts last
	IsSelected bool      `json:"is_selected"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Order returns the section's order index and whether it is set.
func (s Section) Order() (int, bool) {
	if s.OrderIndex == nil {
		return 0, false
	}
	return *s.OrderIndex, true
}

// WithOrder returns a copy of s with OrderIndex set to i.
func (s Section) WithOrder(i int) Section {
	s.OrderIndex = &i
	return s
}
