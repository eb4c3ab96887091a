package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/shared/metrics"
	"recruitment-backend/internal/shared/telemetry"
)

var tracer = otel.Tracer("recruitment-backend/generation")

// Instrumented bounds every call with a timeout and wraps failures in
// flow.ErrGenerationFailed. Each call is traced and counted. Cancellation is passed
// through unwrapped so callers can tell teardown from failure.
type Instrumented struct {
	next    Backend
	timeout time.Duration
	now     func() time.Time
}

// Instrument wraps next. A zero timeout disables the deadline.
func Instrument(next Backend, timeout time.Duration) *Instrumented {
	return &Instrumented{next: next, timeout: timeout, now: time.Now}
}

func (i *Instrumented) Name() string { return i.next.Name() }

func (i *Instrumented) GenerateJobSpec(ctx context.Context, in JobSpecInput) (string, error) {
	var out string
	err := i.observe(ctx, FlowJobSpec, string(in.Mode), func(ctx context.Context) error {
		var err error
		out, err = i.next.GenerateJobSpec(ctx, in)
		return err
	})
	return out, err
}

func (i *Instrumented) GenerateQuestions(ctx context.Context, in QuestionsInput) ([]Question, error) {
	var out []Question
	err := i.observe(ctx, FlowInterview, string(in.Mode), func(ctx context.Context) error {
		var err error
		out, err = i.next.GenerateQuestions(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (i *Instrumented) observe(ctx context.Context, flowName, mode string, call func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "generation."+flowName, trace.WithAttributes(
		attribute.String("generation.backend", i.next.Name()),
		attribute.String("generation.mode", mode),
	))
	defer span.End()

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	metrics.IncGenerationStarted(flowName)
	start := i.now()
	err := call(ctx)
	elapsed := i.now().Sub(start)
	metrics.ObserveGenerationDuration(flowName, elapsed)

	if err == nil {
		metrics.IncGenerationCompleted(flowName)
		span.SetStatus(codes.Ok, "")
		return nil
	}

	if errors.Is(err, context.Canceled) {
		span.SetStatus(codes.Error, "cancelled")
		return err
	}

	metrics.IncGenerationFailed(flowName)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	telemetry.Warn("generation.failed", map[string]any{
		"flow":        flowName,
		"backend":     i.next.Name(),
		"duration_ms": elapsed.Milliseconds(),
		"error":       err,
	})
	if errors.Is(err, flow.ErrGenerationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", flow.ErrGenerationFailed, err)
}

var _ Backend = (*Instrumented)(nil)
