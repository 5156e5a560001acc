package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// fakeAdapter counts calls and returns a canned outcome.
type fakeAdapter struct {
	id    image.ProviderID
	calls int
	last  *image.GenerateRequest
	err   error
}

func (f *fakeAdapter) ID() image.ProviderID { return f.id }

func (f *fakeAdapter) Generate(ctx context.Context, req *image.GenerateRequest) (*image.Result, error) {
	f.calls++
	cp := *req
	f.last = &cp
	if f.err != nil {
		return nil, f.err
	}
	return &image.Result{URL: "https://img.example/" + string(f.id) + ".png", Seed: image.ResolveSeed(req.Seed)}, nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	codes []string
}

func (r *fakeRecorder) RecordGeneration(provider, model, code string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, provider+"/"+model+"/"+code)
}

type fixture struct {
	gitee, hf, ms *fakeAdapter
	recorder      *fakeRecorder
	d             *Dispatcher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		gitee:    &fakeAdapter{id: image.ProviderGitee},
		hf:       &fakeAdapter{id: image.ProviderHuggingFace},
		ms:       &fakeAdapter{id: image.ProviderModelScope},
		recorder: &fakeRecorder{},
	}
	opts = append([]Option{WithRecorder(f.recorder), WithLogger(zap.NewNop())}, opts...)
	d, err := New(Adapters{Gitee: f.gitee, HuggingFace: f.hf, ModelScope: f.ms}, opts...)
	require.NoError(t, err)
	f.d = d
	return f
}

func (f *fixture) totalCalls() int { return f.gitee.calls + f.hf.calls + f.ms.calls }

func validBody() image.GenerateRequest {
	return image.GenerateRequest{Prompt: "a cat", Width: 1024, Height: 768, Steps: 9}
}

func TestNew_EveryProviderResolves(t *testing.T) {
	f := newFixture(t)
	for _, id := range image.AllProviders() {
		p := f.d.adapter(id)
		require.NotNil(t, p, "provider %s", id)
		assert.Equal(t, id, p.ID())
	}
}

func TestNew_RejectsMissingOrMismatchedAdapter(t *testing.T) {
	g := &fakeAdapter{id: image.ProviderGitee}
	h := &fakeAdapter{id: image.ProviderHuggingFace}
	m := &fakeAdapter{id: image.ProviderModelScope}

	_, err := New(Adapters{Gitee: g, HuggingFace: h})
	assert.Error(t, err)

	_, err = New(Adapters{Gitee: h, HuggingFace: g, ModelScope: m})
	assert.Error(t, err)
}

func TestGenerate_Success(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return fixed }))

	seed := int64(42)
	body := validBody()
	body.Seed = &seed
	body.Model = "flux-1-schnell"

	details, err := f.d.Generate(context.Background(), &Request{Provider: "gitee", Body: body, Credential: " key "})
	require.NoError(t, err)

	assert.Equal(t, "https://img.example/gitee.png", details.URL)
	assert.Equal(t, "Gitee AI", details.Provider)
	assert.Equal(t, "FLUX.1 Schnell", details.Model)
	assert.Equal(t, "1024 x 768 (4:3)", details.Dimensions)
	assert.Equal(t, "0ms", details.Duration)
	assert.Equal(t, int64(42), details.Seed)
	assert.Equal(t, 9, details.Steps)
	assert.Equal(t, "a cat", details.Prompt)
	assert.Equal(t, "2026-03-01T12:00:00Z", details.Timestamp)

	require.NotNil(t, f.gitee.last)
	assert.Equal(t, "key", f.gitee.last.AuthToken)
	assert.Equal(t, "gitee", f.gitee.last.Provider)
	assert.Equal(t, []string{"gitee/flux-1-schnell/"}, f.recorder.codes)
}

func TestGenerate_DefaultModelAndUnknownModelName(t *testing.T) {
	f := newFixture(t)

	details, err := f.d.Generate(context.Background(), &Request{Provider: "huggingface", Body: validBody()})
	require.NoError(t, err)
	assert.Equal(t, image.ModelName("huggingface", image.DefaultModel(image.ProviderHuggingFace)), details.Model)

	body := validBody()
	body.Model = "custom-model"
	details, err = f.d.Generate(context.Background(), &Request{Provider: "huggingface", Body: body})
	require.NoError(t, err)
	assert.Equal(t, "custom-model", details.Model)
}

func TestGenerate_ShortCircuits(t *testing.T) {
	long := strings.Repeat("x", image.MaxPromptLength+1)
	tests := []struct {
		name  string
		req   Request
		code  types.ErrorCode
		field string
	}{
		{"unknown provider", Request{Provider: "openai", Body: validBody()}, types.ErrInvalidProvider, "provider"},
		{"missing gitee key", Request{Provider: "gitee", Body: validBody()}, types.ErrAuthRequired, ""},
		{"blank modelscope key", Request{Provider: "modelscope", Body: validBody(), Credential: "  "}, types.ErrAuthRequired, ""},
		{"empty prompt", Request{Provider: "huggingface", Body: image.GenerateRequest{Width: 1024, Height: 1024, Steps: 9}}, types.ErrInvalidPrompt, "prompt"},
		{"long prompt", Request{Provider: "huggingface", Body: image.GenerateRequest{Prompt: long, Width: 1024, Height: 1024, Steps: 9}}, types.ErrInvalidPrompt, "prompt"},
		{"narrow", Request{Provider: "huggingface", Body: image.GenerateRequest{Prompt: "p", Width: 100, Height: 1024, Steps: 9}}, types.ErrInvalidDimensions, "width"},
		{"tall", Request{Provider: "huggingface", Body: image.GenerateRequest{Prompt: "p", Width: 1024, Height: 4096, Steps: 9}}, types.ErrInvalidDimensions, "height"},
		{"steps", Request{Provider: "huggingface", Body: image.GenerateRequest{Prompt: "p", Width: 1024, Height: 1024, Steps: 51}}, types.ErrInvalidParams, "steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.d.Generate(context.Background(), &tt.req)
			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.field, e.Details.Field)
			assert.Zero(t, f.totalCalls(), "adapter must not be called")
			assert.Empty(t, f.recorder.codes)
		})
	}
}

func TestGenerate_FirstValidationFailureWins(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.Generate(context.Background(), &Request{
		Provider: "huggingface",
		Body:     image.GenerateRequest{Width: 1, Height: 1, Steps: 0},
	})
	assert.Equal(t, types.ErrInvalidPrompt, types.GetErrorCode(err))
}

func TestGenerate_CustomPromptLimit(t *testing.T) {
	f := newFixture(t)
	body := validBody()
	body.Prompt = strings.Repeat("y", 20)
	_, err := f.d.Generate(context.Background(), &Request{Provider: "huggingface", Body: body, MaxPromptLength: 10})
	assert.Equal(t, types.ErrInvalidPrompt, types.GetErrorCode(err))
}

func TestGenerate_AdapterErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorCode
	}{
		{"taxonomy passes through", types.NewError(types.ErrQuotaExceeded, "quota"), types.ErrQuotaExceeded},
		{"raw error becomes unknown", errors.New("nil pointer somewhere"), types.ErrUnknown},
		{"deadline becomes timeout", context.DeadlineExceeded, types.ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.hf.err = tt.err

			_, err := f.d.Generate(context.Background(), &Request{Provider: "huggingface", Body: validBody()})
			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, e.Code)
			assert.Equal(t, "huggingface", e.Details.Provider)
			assert.Equal(t, 1, f.hf.calls, "no retry")
			require.Len(t, f.recorder.codes, 1)
			assert.True(t, strings.HasSuffix(f.recorder.codes[0], "/"+string(tt.want)))
		})
	}
}

func TestGenerate_UnknownErrorHidesCause(t *testing.T) {
	f := newFixture(t)
	f.hf.err = errors.New("secret internal detail")

	_, err := f.d.Generate(context.Background(), &Request{Provider: "huggingface", Body: validBody()})
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.NotContains(t, e.Message, "secret")
	assert.Equal(t, 500, e.HTTPStatus())
}

func TestProperty_SeedRoundTrip(t *testing.T) {
	f := newFixture(t)
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64Range(0, image.MaxSeed-1).Draw(rt, "seed")
		body := validBody()
		body.Seed = &seed

		details, err := f.d.Generate(context.Background(), &Request{Provider: "huggingface", Body: body})
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if details.Seed != seed {
			rt.Fatalf("seed %d came back as %d", seed, details.Seed)
		}
	})
}
