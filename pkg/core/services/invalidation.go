package services

import "context"

// Invalidator is told when a biosite's links or sections change.
type Invalidator interface {
	Invalidate(ctx context.Context, biositeID string)
}

// Invalidators fans a change out to several invalidators.
type Invalidators []Invalidator

func (in Invalidators) Invalidate(ctx context.Context, biositeID string) {
	for _, i := range in {
		if i != nil {
			i.Invalidate(ctx, biositeID)
		}
	}
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}
