package embedding

import "context"

// Unavailable is the provider selected when the semantic model is disabled
// or failed to initialize. Every call reports ErrUnavailable so the engine
// routes to the keyword fallback; nothing ever probes for the model again.
type Unavailable struct{}

// NewUnavailable creates the permanently-unavailable provider.
func NewUnavailable() *Unavailable { return &Unavailable{} }

func (u *Unavailable) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) Dimensions() int { return 0 }

func (u *Unavailable) Model() string { return "none" }

func (u *Unavailable) Available() bool { return false }
