package batch

import (
	"context"
	"encoding/base64"
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pajangan-promoshot/internal/gemini"
	"pajangan-promoshot/internal/preview"
)

// fakeGenerator echoes the instruction back as the image payload so tests can
// tell which pose produced which result.
type fakeGenerator struct {
	mu    sync.Mutex
	calls map[string]int
	reqs  []gemini.Request

	// fail decides whether attempt n (1-based) for an instruction fails.
	fail func(instruction string, attempt int) error
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req gemini.Request) (gemini.Image, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.Instruction]++
	attempt := f.calls[req.Instruction]
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return gemini.Image{}, err
	}
	if f.fail != nil {
		if err := f.fail(req.Instruction, attempt); err != nil {
			return gemini.Image{}, err
		}
	}
	return gemini.Image{Data: []byte(req.Instruction), MimeType: "image/png"}, nil
}

func (f *fakeGenerator) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) newTimer() backoff.Timer {
	return &fakeTimer{rec: r, c: make(chan time.Time, 1)}
}

func (r *delayRecorder) sorted() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]time.Duration(nil), r.delays...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// fakeTimer fires immediately and records the requested delay.
type fakeTimer struct {
	rec *delayRecorder
	c   chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.rec.mu.Lock()
	t.rec.delays = append(t.rec.delays, d)
	t.rec.mu.Unlock()
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func payload(s string) preview.ImagePayload {
	return preview.ImagePayload{Data: base64.StdEncoding.EncodeToString([]byte(s)), MediaType: "image/jpeg"}
}

func testRequest() Request {
	return Request{
		ModelImage:   payload("model"),
		ProductImage: payload("product"),
		Background:   "A beautiful white sand beach with turquoise water",
		AspectRatio:  preview.Ratio9x16,
	}
}

func newTestOrchestrator(t *testing.T, gen Generator, rec *delayRecorder, seed uint64) *Orchestrator {
	t.Helper()
	if rec == nil {
		rec = &delayRecorder{}
	}
	o, err := New(Options{
		Generator: gen,
		Rand:      rand.New(rand.NewPCG(seed, seed+1)),
		NewTimer:  rec.newTimer,
	})
	require.NoError(t, err)
	return o
}

// expectedPoses replays the sampling an orchestrator seeded with seed will do.
func expectedPoses(t *testing.T, seed uint64) []string {
	t.Helper()
	return newTestOrchestrator(t, &fakeGenerator{}, nil, seed).SelectPoses(preview.BatchSize)
}

func decodeResult(t *testing.T, url string) string {
	t.Helper()
	in, err := gemini.ParseDataURL(url)
	require.NoError(t, err)
	return string(in.Data)
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestGenerate_AllSucceed(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(t, gen, nil, 7)
	want := expectedPoses(t, 7)

	images, err := o.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, images, preview.BatchSize)

	for i, url := range images {
		assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
		instr := decodeResult(t, url)
		assert.Contains(t, instr, want[i], "result %d out of order", i)
		assert.Contains(t, instr, "vertical 9:16 portrait")
		assert.Contains(t, instr, "white sand beach")
	}

	assert.Equal(t, preview.BatchSize, gen.totalCalls())
	seen := map[string]bool{}
	for _, r := range gen.reqs {
		assert.False(t, seen[r.Instruction], "pose used twice")
		seen[r.Instruction] = true
		assert.Equal(t, []byte("model"), r.ModelImage.Data)
		assert.Equal(t, []byte("product"), r.ProductImage.Data)
	}
}

func TestGenerate_Defaults(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(t, gen, nil, 1)

	req := testRequest()
	req.Background = ""
	req.AspectRatio = ""
	_, err := o.Generate(context.Background(), req)
	require.NoError(t, err)

	for _, r := range gen.reqs {
		assert.Contains(t, r.Instruction, preview.DefaultBackground().Key)
		assert.Contains(t, r.Instruction, preview.DefaultAspectRatio.Description())
	}
}

func TestGenerate_RetriesTransientFailures(t *testing.T) {
	gen := &fakeGenerator{fail: func(_ string, attempt int) error {
		if attempt <= 2 {
			return errors.New("503 overloaded")
		}
		return nil
	}}
	rec := &delayRecorder{}
	o := newTestOrchestrator(t, gen, rec, 3)

	images, err := o.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, images, preview.BatchSize)
	assert.Equal(t, preview.BatchSize*3, gen.totalCalls())

	var want []time.Duration
	for range preview.BatchSize {
		want = append(want, time.Second)
	}
	for range preview.BatchSize {
		want = append(want, 2*time.Second)
	}
	assert.Equal(t, want, rec.sorted())
}

func TestGenerate_NoImageIsRetried(t *testing.T) {
	gen := &fakeGenerator{fail: func(_ string, attempt int) error {
		if attempt == 1 {
			return gemini.ErrNoImage
		}
		return nil
	}}
	o := newTestOrchestrator(t, gen, nil, 4)

	images, err := o.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, images, preview.BatchSize)
	assert.Equal(t, preview.BatchSize*2, gen.totalCalls())
}

func TestGenerate_OnePermanentFailureFailsBatch(t *testing.T) {
	want := expectedPoses(t, 5)
	broken := want[2]
	boom := errors.New("quota exceeded")

	gen := &fakeGenerator{fail: func(instr string, _ int) error {
		if strings.Contains(instr, broken) {
			return boom
		}
		return nil
	}}
	rec := &delayRecorder{}
	o := newTestOrchestrator(t, gen, rec, 5)

	images, err := o.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Nil(t, images)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "pose 3")

	// the broken pose used all attempts, the other five still ran once each
	gen.mu.Lock()
	defer gen.mu.Unlock()
	for instr, n := range gen.calls {
		if strings.Contains(instr, broken) {
			assert.Equal(t, DefaultMaxAttempts, n)
		} else {
			assert.Equal(t, 1, n)
		}
	}
	assert.Len(t, gen.calls, preview.BatchSize)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.sorted())
}

func TestGenerate_MissingImage(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(t, gen, nil, 1)

	for name, mutate := range map[string]func(*Request){
		"no model":   func(r *Request) { r.ModelImage = preview.ImagePayload{} },
		"no product": func(r *Request) { r.ProductImage = preview.ImagePayload{} },
		"no type":    func(r *Request) { r.ProductImage.MediaType = "" },
	} {
		t.Run(name, func(t *testing.T) {
			req := testRequest()
			mutate(&req)
			_, err := o.Generate(context.Background(), req)
			assert.ErrorIs(t, err, ErrMissingImage)
		})
	}

	req := testRequest()
	req.ModelImage.Data = "###"
	_, err := o.Generate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidImage)

	assert.Zero(t, gen.totalCalls())
}

func TestGenerate_CanceledContext(t *testing.T) {
	gen := &fakeGenerator{}
	rec := &delayRecorder{}
	o := newTestOrchestrator(t, gen, rec, 9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Generate(ctx, testRequest())
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.sorted(), "canceled calls are not retried")
}

func TestSelectPoses(t *testing.T) {
	o := newTestOrchestrator(t, &fakeGenerator{}, nil, 11)

	t.Run("distinct and from the catalog", func(t *testing.T) {
		catalog := map[string]bool{}
		for _, p := range preview.Poses() {
			catalog[p] = true
		}
		for range 200 {
			got := o.SelectPoses(preview.BatchSize)
			require.Len(t, got, preview.BatchSize)
			seen := map[string]bool{}
			for _, p := range got {
				assert.True(t, catalog[p])
				assert.False(t, seen[p])
				seen[p] = true
			}
		}
	})

	t.Run("bounds", func(t *testing.T) {
		assert.Empty(t, o.SelectPoses(0))
		assert.Empty(t, o.SelectPoses(-3))
		assert.Len(t, o.SelectPoses(100), len(preview.Poses()))
	})

	t.Run("roughly uniform", func(t *testing.T) {
		const rounds = 12000
		counts := map[string]int{}
		for range rounds {
			for _, p := range o.SelectPoses(preview.BatchSize) {
				counts[p]++
			}
		}
		// each of 12 poses lands in a 6-pose draw with probability 1/2
		require.Len(t, counts, 12)
		for p, n := range counts {
			assert.InDelta(t, rounds/2, n, 400, p)
		}
	})
}
