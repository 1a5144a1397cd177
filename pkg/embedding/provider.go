package embedding

import "context"

// Provider generates fixed-dimension text embeddings.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
