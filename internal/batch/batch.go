// Package batch turns one model photo and one product photo into a set of
// promo images, one per randomly chosen pose, generated concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"pajangan-promoshot/internal/config"
	"pajangan-promoshot/internal/gemini"
	"pajangan-promoshot/internal/preview"
)

var (
	// ErrMissingImage is an input error: nothing is sent to the model.
	ErrMissingImage = errors.New("model image and product image are both required")
	ErrInvalidImage = errors.New("image payload is not valid base64")
	// ErrGenerationFailed wraps the first pose that still failed after all attempts.
	ErrGenerationFailed = errors.New("image generation failed")
)

const (
	DefaultMaxAttempts  = config.GenerationAttempts
	DefaultInitialDelay = time.Second
)

// Generator produces one image per call.
type Generator interface {
	GenerateImage(ctx context.Context, req gemini.Request) (gemini.Image, error)
}

type Options struct {
	Generator Generator
	Logger    *slog.Logger

	// Rand drives pose sampling. Nil uses a randomly seeded source.
	Rand *rand.Rand

	BatchSize    int
	MaxAttempts  int
	InitialDelay time.Duration

	// NewTimer overrides the retry timer, one per pose. Nil uses real time.
	NewTimer func() backoff.Timer
}

type Request struct {
	ModelImage   preview.ImagePayload
	ProductImage preview.ImagePayload
	Background   string
	AspectRatio  preview.AspectRatio
}

type Orchestrator struct {
	gen    Generator
	logger *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand

	batchSize    int
	maxAttempts  int
	initialDelay time.Duration
	newTimer     func() backoff.Timer
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = preview.BatchSize
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	initialDelay := opts.InitialDelay
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}

	return &Orchestrator{
		gen:          opts.Generator,
		logger:       logger,
		rnd:          rnd,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		newTimer:     opts.NewTimer,
	}, nil
}

// SelectPoses draws n distinct poses from the catalog, uniformly at random.
// n is capped at the catalog size.
func (o *Orchestrator) SelectPoses(n int) []string {
	pool := preview.Poses()
	n = min(max(n, 0), len(pool))

	o.mu.Lock()
	defer o.mu.Unlock()

	// partial Fisher-Yates: the first n slots end up a uniform sample
	for i := 0; i < n; i++ {
		j := i + o.rnd.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// Generate runs one batch. Every pose is attempted even if another fails;
// the batch succeeds only if all of them do. Images come back as data URLs
// in pose selection order.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]string, error) {
	if req.ModelImage.Empty() || req.ProductImage.Empty() {
		return nil, ErrMissingImage
	}

	modelImg, err := gemini.FromBase64(req.ModelImage.Data, req.ModelImage.MediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: model image: %v", ErrInvalidImage, err)
	}
	productImg, err := gemini.FromBase64(req.ProductImage.Data, req.ProductImage.MediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: product image: %v", ErrInvalidImage, err)
	}

	background := strings.TrimSpace(req.Background)
	if background == "" {
		background = preview.DefaultBackground().Key
	}
	ratio := req.AspectRatio
	if ratio == "" {
		ratio = preview.DefaultAspectRatio
	}

	poses := o.SelectPoses(o.batchSize)
	results := make([]string, len(poses))
	start := time.Now()

	o.logger.Info("batch started",
		"poses", len(poses),
		"aspect_ratio", string(ratio),
	)

	var g errgroup.Group
	for i, pose := range poses {
		g.Go(func() error {
			img, err := o.generateOne(ctx, i, gemini.Request{
				ModelImage:   modelImg,
				ProductImage: productImg,
				Instruction:  preview.BuildInstruction(pose, background, ratio),
			})
			if err != nil {
				o.logger.Error("pose failed", "index", i, "error", err)
				return fmt.Errorf("pose %d: %w", i+1, err)
			}
			results[i] = img.DataURL()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("batch failed", "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	images := lo.Filter(results, func(s string, _ int) bool { return s != "" })
	o.logger.Info("batch finished",
		"images", len(images),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return images, nil
}

func (o *Orchestrator) generateOne(ctx context.Context, index int, req gemini.Request) (gemini.Image, error) {
	var img gemini.Image
	attempt := 0

	op := func() error {
		attempt++
		out, err := o.gen.GenerateImage(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		img = out
		return nil
	}

	notify := func(err error, delay time.Duration) {
		o.logger.Warn("retrying pose",
			"index", index,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err,
		)
	}

	var timer backoff.Timer
	if o.newTimer != nil {
		timer = o.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(op, o.retryPolicy(ctx), notify, timer)
	return img, err
}

// retryPolicy doubles the delay after each failure, starting at initialDelay,
// with no jitter and a fixed attempt count.
func (o *Orchestrator) retryPolicy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.initialDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = o.initialDelay << (o.maxAttempts + 1)
	eb.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(o.maxAttempts-1)), ctx)
}
