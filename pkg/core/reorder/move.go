package reorder

import (
	"github.com/pkg/errors"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
)

// Item is one orderable element of a scope.
type Item struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
}

// Move returns a copy of items with the element at from reinserted at to and
// every OrderIndex rewritten to its new position.
func Move(items []Item, from, to int) ([]Item, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "move %d -> %d in scope of %d", from, to, n)
	}

	out := make([]Item, 0, n)
	moved := items[from]
	for i, it := range items {
		if i != from {
			out = append(out, it)
		}
	}
	out = append(out[:to], append([]Item{moved}, out[to:]...)...)

	for i := range out {
		out[i].OrderIndex = i
	}
	return out, nil
}

// Batch converts items into the persistence payload.
func Batch(items []Item) []domain.OrderUpdate {
	batch := make([]domain.OrderUpdate, len(items))
	for i, it := range items {
		batch[i] = domain.OrderUpdate{ID: it.ID, OrderIndex: it.OrderIndex}
	}
	return batch
}
