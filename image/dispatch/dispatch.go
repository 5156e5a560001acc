// Package dispatch routes a generic generation request to the adapter of its
// provider and normalizes the outcome into ImageDetails or a taxonomy error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Adapters holds one adapter per provider variant.
type Adapters struct {
	Gitee       image.Provider
	HuggingFace image.Provider
	ModelScope  image.Provider
}

// Recorder receives one observation per adapter call. code is empty on success.
type Recorder interface {
	RecordGeneration(provider, model, code string, duration time.Duration)
}

// Request is one dispatch.
type Request struct {
	Provider   string
	Body       image.GenerateRequest
	Credential string
	// MaxPromptLength defaults to image.MaxPromptLength.
	MaxPromptLength int
}

// Dispatcher validates requests and calls the matching adapter. It never
// retries.
type Dispatcher struct {
	adapters Adapters
	recorder Recorder
	tracer   trace.Tracer
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher. Every provider variant must have an adapter whose
// ID matches its slot.
func New(adapters Adapters, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		adapters: adapters,
		tracer:   otel.Tracer("imageflow/dispatch"),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("component", "dispatch"))

	for _, id := range image.AllProviders() {
		p := d.adapter(id)
		if p == nil {
			return nil, fmt.Errorf("dispatch: no adapter for provider %q", id)
		}
		if p.ID() != id {
			return nil, fmt.Errorf("dispatch: adapter in slot %q reports id %q", id, p.ID())
		}
	}
	return d, nil
}

func (d *Dispatcher) adapter(id image.ProviderID) image.Provider {
	switch id {
	case image.ProviderGitee:
		return d.adapters.Gitee
	case image.ProviderHuggingFace:
		return d.adapters.HuggingFace
	case image.ProviderModelScope:
		return d.adapters.ModelScope
	}
	return nil
}

// Generate validates req, calls the adapter and builds the success envelope.
// Validation failures never reach the adapter.
func (d *Dispatcher) Generate(ctx context.Context, req *Request) (*image.ImageDetails, error) {
	details, err := d.generate(ctx, req)
	if err != nil {
		return nil, types.FromError(err)
	}
	return details, nil
}

func (d *Dispatcher) generate(ctx context.Context, req *Request) (*image.ImageDetails, error) {
	id, ok := image.ParseProviderID(req.Provider)
	if !ok {
		return nil, types.NewError(types.ErrInvalidProvider, "Unknown provider: "+req.Provider).WithField("provider")
	}
	cfg, _ := image.LookupProvider(id)

	credential := strings.TrimSpace(req.Credential)
	if cfg.RequiresAuth && credential == "" {
		return nil, types.NewError(types.ErrAuthRequired, cfg.Name+" credential is required").
			WithProvider(string(id))
	}

	body := req.Body
	maxLen := req.MaxPromptLength
	if maxLen <= 0 {
		maxLen = image.MaxPromptLength
	}
	if v := image.ValidatePrompt(body.Prompt, maxLen); !v.Valid {
		return nil, v.Err(types.ErrInvalidPrompt)
	}
	if v := image.ValidateDimensions(body.Width, body.Height); !v.Valid {
		return nil, v.Err(types.ErrInvalidDimensions)
	}
	if v := image.ValidateSteps(body.Steps); !v.Valid {
		return nil, v.Err(types.ErrInvalidParams)
	}

	model := body.Model
	if model == "" {
		model = image.DefaultModel(id)
	}
	body.Provider = string(id)
	body.Model = model
	body.AuthToken = credential

	ctx, span := d.tracer.Start(ctx, "image.generate",
		trace.WithAttributes(
			attribute.String("image.provider", string(id)),
			attribute.String("image.model", model),
			attribute.Int("image.width", body.Width),
			attribute.Int("image.height", body.Height),
		))
	defer span.End()

	start := d.now()
	res, err := d.adapter(id).Generate(ctx, &body)
	elapsed := d.now().Sub(start)

	if err != nil {
		e := types.FromError(err)
		if e.Details.Provider == "" {
			e.WithProvider(string(id))
		}
		span.RecordError(e)
		span.SetStatus(codes.Error, string(e.Code))
		d.record(string(id), model, string(e.Code), elapsed)
		d.logFailure(e, string(id), model)
		return nil, e
	}
	d.record(string(id), model, "", elapsed)
	span.SetAttributes(attribute.Int64("image.seed", res.Seed))

	return &image.ImageDetails{
		URL:            res.URL,
		Provider:       image.ProviderName(string(id)),
		Model:          image.ModelName(string(id), model),
		Dimensions:     image.FormatDimensions(body.Width, body.Height),
		Duration:       image.FormatDuration(elapsed),
		Seed:           res.Seed,
		Steps:          body.Steps,
		GuidanceScale:  body.GuidanceScale,
		Prompt:         body.Prompt,
		NegativePrompt: body.NegativePrompt,
		Timestamp:      d.now().UTC().Format(time.RFC3339),
	}, nil
}

func (d *Dispatcher) record(provider, model, code string, elapsed time.Duration) {
	if d.recorder != nil {
		d.recorder.RecordGeneration(provider, model, code, elapsed)
	}
}

// logFailure never logs the request credential.
func (d *Dispatcher) logFailure(e *types.Error, provider, model string) {
	fields := []zap.Field{
		zap.String("code", string(e.Code)),
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("status", e.HTTPStatus()),
	}
	if e.Cause != nil && !errors.Is(e.Cause, context.Canceled) {
		fields = append(fields, zap.NamedError("cause", e.Cause))
	}
	if e.Code == types.ErrUnknown {
		d.logger.Error("generation failed", fields...)
		return
	}
	d.logger.Warn("generation failed", fields...)
}
