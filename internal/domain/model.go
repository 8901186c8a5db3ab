package domain

import "context"

// ModelAdapter scores normalized text against a pretrained classification
// model. It is treated as an opaque, potentially slow, potentially failing
// collaborator with no side effects on pipeline state.
//
// Unexpected labels in the returned mapping are passed through rather than
// rejected, to stay resilient to model upgrades.
type ModelAdapter interface {
	// Score returns a label -> confidence mapping for the given text.
	Score(ctx context.Context, text string) (map[string]float64, error)
	// ModelName is the opaque model identifier forwarded in results.
	ModelName() string
}
