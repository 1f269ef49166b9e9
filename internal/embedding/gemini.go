package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/talent-matcher/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-embedding-001"
	defaultDimensions = 768
	defaultTimeout    = 30 * time.Second

	// Semantic similarity is what the matching engine measures; the task
	// type is part of the request so the model optimizes for it.
	taskTypeSimilarity = "SEMANTIC_SIMILARITY"

	maxLogTextLen = 80
)

// GeminiConfig configures the Gemini-backed embedding provider.
type GeminiConfig struct {
	APIKey            string
	Model             string
	Dimensions        int
	RequestTimeout    time.Duration
	MaxRetries        int
	RequestsPerSecond float64
}

// Gemini generates embeddings through the Google GenAI API.
type Gemini struct {
	client     *genai.Client
	modelName  string
	dimensions int
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewGemini creates a Gemini embedding provider. Initialization errors are
// returned to the composition root, which swaps in the unavailable stub
// instead of propagating them further.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gemini{
		client:     client,
		modelName:  model,
		dimensions: dimensions,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}, nil
}

func (g *Gemini) Dimensions() int { return g.dimensions }

func (g *Gemini) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func (g *Gemini) Available() bool { return g != nil && g.client != nil }

// Embed converts one text into a vector. Empty text short-circuits to a
// zero vector without a model call.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return ZeroVector(g.dimensions), nil
	}

	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in a single API call, preserving positions.
// Empty texts map to zero vectors and are not sent to the model.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if g == nil || g.client == nil {
		return nil, ErrUnavailable
	}

	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	contents := make([]*genai.Content, 0, len(texts))
	positions := make([]int, 0, len(texts))

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			vectors[i] = ZeroVector(g.dimensions)
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: TruncateText(text)}},
		})
		positions = append(positions, i)
	}

	if len(contents) == 0 {
		return vectors, nil
	}

	g.logger.Debug("embedding texts",
		zap.Int("count", len(contents)),
		zap.String("first_text_preview", utils.TruncateForLog(texts[positions[0]], maxLogTextLen)),
	)

	embeddings, err := g.embedWithRetry(ctx, contents)
	if err != nil {
		return nil, err
	}

	if len(embeddings) != len(positions) {
		return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", len(embeddings), len(positions))
	}

	for idx, embedding := range embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, errors.New("gemini api returned an empty embedding")
		}
		vectors[positions[idx]] = embedding.Values
	}

	return vectors, nil
}

func (g *Gemini) embedWithRetry(ctx context.Context, contents []*genai.Content) ([]*genai.ContentEmbedding, error) {
	dims := int32(g.dimensions)
	config := &genai.EmbedContentConfig{
		TaskType:             taskTypeSimilarity,
		OutputDimensionality: &dims,
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			g.logger.Debug("retrying embedding request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.client.Models.EmbedContent(callCtx, g.modelName, contents, config)
		cancel()

		if err != nil {
			lastErr = err
			continue
		}

		return resp.Embeddings, nil
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}
