package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"pajangan-promoshot/internal/config"
)

// ErrNoImage means the model answered without any inline image data.
var ErrNoImage = errors.New("model returned no image")

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// models is the part of genai.Models the client uses.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models models
	model  string
	logger *slog.Logger
}

// New builds a client for the Gemini API. It fails with config.ErrMissingAPIKey
// before touching the network when no key is configured.
func New(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, config.ErrMissingAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimSpace(opts.BaseURL),
			APIVersion: strings.TrimSpace(opts.APIVersion),
		},
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newWithModels(gc.Models, opts), nil
}

func newWithModels(m models, opts Options) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = config.DefaultGeminiModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		models: m,
		model:  model,
		logger: logger,
	}
}

func (c *Client) Model() string { return c.model }

// GenerateImage sends one model+product pair with its instruction and returns
// the first inline image of the reply.
func (c *Client) GenerateImage(ctx context.Context, req Request) (Image, error) {
	if len(req.ModelImage.Data) == 0 || len(req.ProductImage.Data) == 0 {
		return Image{}, errors.New("both images are required")
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return Image{}, errors.New("instruction is empty")
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{
			genai.NewPartFromBytes(req.ModelImage.Data, req.ModelImage.MimeType),
			genai.NewPartFromBytes(req.ProductImage.Data, req.ProductImage.MimeType),
			genai.NewPartFromText(req.Instruction),
		},
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return Image{}, fmt.Errorf("gemini generate: %w", err)
	}

	img, err := extractImage(resp)
	c.logger.Debug("gemini response",
		"model", c.model,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"ok", err == nil,
	)
	return img, err
}

func extractImage(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Image{}, fmt.Errorf("%w: no candidates", ErrNoImage)
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil || p.InlineData == nil {
				continue
			}
			if len(p.InlineData.Data) > 0 && strings.TrimSpace(p.InlineData.MIMEType) != "" {
				return Image{Data: p.InlineData.Data, MimeType: p.InlineData.MIMEType}, nil
			}
		}
	}

	first := resp.Candidates[0]
	if first != nil && first.FinishReason != genai.FinishReasonUnspecified && first.FinishReason != genai.FinishReasonStop {
		return Image{}, fmt.Errorf("%w: finish reason %s", ErrNoImage, first.FinishReason)
	}
	return Image{}, ErrNoImage
}
