// Package interview hosts the interview question flow: a job specification
// and CV, uploaded or typed, turned into a list of questions.
package interview

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/generation"
	"recruitment-backend/internal/notify"
	"recruitment-backend/internal/shared/metrics"
	"recruitment-backend/internal/shared/telemetry"
)

// SlotName addresses one of the two upload slots.
type SlotName string

const (
	SlotJobSpec SlotName = "job-spec"
	SlotCV      SlotName = "cv"
)

var ErrUnknownSlot = errors.New("unknown file slot")

// ParseSlot validates a slot name.
func ParseSlot(raw string) (SlotName, error) {
	switch s := SlotName(strings.TrimSpace(raw)); s {
	case SlotJobSpec, SlotCV:
		return s, nil
	default:
		return "", ErrUnknownSlot
	}
}

// Options configures a Flow.
type Options struct {
	Backend  generation.Backend
	Notifier notify.Notifier
	OnChange func(State)
	Fields   map[string]any
}

// Flow is one mounted interview question form.
type Flow struct {
	mu     sync.Mutex
	closed bool
	life   *flow.Lifetime
	cycle  flow.Cycle[[]generation.Question]

	mode     flow.Mode
	manual   string
	jobSpec  *fileslot.Slot
	cv       *fileslot.Slot
	backend  generation.Backend
	notifier notify.Notifier
	onChange func(State)
	fields   map[string]any
}

// New mounts a flow in upload mode.
func New(parent context.Context, opts Options) *Flow {
	f := &Flow{
		life:     flow.NewLifetime(parent),
		mode:     flow.ModeUpload,
		backend:  opts.Backend,
		notifier: opts.Notifier,
		onChange: opts.OnChange,
		fields:   opts.Fields,
	}
	if f.notifier == nil {
		f.notifier = notify.Discard
	}
	if f.onChange == nil {
		f.onChange = func(State) {}
	}
	f.jobSpec = fileslot.New("Upload Job Specification", fileslot.DefaultAccept, nil)
	f.cv = fileslot.New("Upload Candidate CV", fileslot.DefaultAccept, nil)
	return f
}

func (f *Flow) SetMode(raw string) (State, error) {
	mode, err := flow.ParseMode(raw)
	if err != nil {
		return f.State(), err
	}
	return f.update(func() error {
		f.mode = mode
		return nil
	})
}

// SetManualJobSpec replaces the typed job specification details.
func (f *Flow) SetManualJobSpec(v string) (State, error) {
	return f.update(func() error {
		f.manual = v
		return nil
	})
}

func (f *Flow) PickFile(slot SlotName, files []fileslot.SelectedFile) (State, error) {
	return f.withSlot(slot, func(s *fileslot.Slot) { s.Pick(files) })
}

func (f *Flow) DropFile(slot SlotName, files []fileslot.SelectedFile) (State, error) {
	return f.withSlot(slot, func(s *fileslot.Slot) { s.Drop(files) })
}

func (f *Flow) RemoveFile(slot SlotName) (State, error) {
	return f.withSlot(slot, func(s *fileslot.Slot) { s.Remove() })
}

// Drag forwards a drag indicator event. It is allowed while generating.
func (f *Flow) Drag(slot SlotName, event fileslot.DragEvent) (State, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return State{}, flow.ErrClosed
	}
	s, err := f.slotLocked(slot)
	if err == nil {
		err = s.Apply(event)
	}
	st := f.stateLocked()
	f.mu.Unlock()
	return st, err
}

func (f *Flow) withSlot(slot SlotName, op func(*fileslot.Slot)) (State, error) {
	return f.update(func() error {
		s, err := f.slotLocked(slot)
		if err != nil {
			return err
		}
		op(s)
		return nil
	})
}

func (f *Flow) slotLocked(slot SlotName) (*fileslot.Slot, error) {
	switch slot {
	case SlotJobSpec:
		return f.jobSpec, nil
	case SlotCV:
		return f.cv, nil
	default:
		return nil, ErrUnknownSlot
	}
}

// Submit starts a generation bound to the flow lifetime.
func (f *Flow) Submit(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return State{}, flow.ErrClosed
	}
	if f.cycle.Generating() {
		st := f.stateLocked()
		f.mu.Unlock()
		metrics.IncRejected(generation.FlowInterview, "busy")
		return st, flow.ErrBusy
	}
	if !f.canSubmitLocked() {
		f.notifier.Notify(notify.Destructive("Missing information", "Please provide both job specification and CV"))
		st := f.stateLocked()
		f.mu.Unlock()
		metrics.IncRejected(generation.FlowInterview, "missing_input")
		return st, flow.ErrMissingInput
	}

	token, err := f.cycle.Begin()
	if err != nil {
		st := f.stateLocked()
		f.mu.Unlock()
		return st, err
	}
	in := generation.QuestionsInput{
		Mode:        f.mode,
		JobSpecFile: f.jobSpec.Selected(),
		CVFile:      f.cv.Selected(),
	}
	if f.mode == flow.ModeManual {
		in.JobSpecText = strings.TrimSpace(f.manual)
	}
	sc := trace.SpanContextFromContext(ctx)
	flow.Go(f.life, func(lctx context.Context) ([]generation.Question, error) {
		return f.backend.GenerateQuestions(trace.ContextWithSpanContext(lctx, sc), in)
	}, func(res flow.Result[[]generation.Question]) {
		f.settle(token, res)
	})
	st := f.stateLocked()
	f.mu.Unlock()

	f.onChange(st)
	return st, nil
}

func (f *Flow) settle(token uint64, res flow.Result[[]generation.Question]) {
	if res.State == flow.Resolved {
		res.Value = generation.CloneQuestions(res.Value)
	}
	f.mu.Lock()
	if f.closed || !f.cycle.Settle(token, res) {
		f.mu.Unlock()
		metrics.IncGenerationDiscarded(generation.FlowInterview)
		telemetry.Info("generation.discarded", f.logFields(nil))
		return
	}
	if res.State == flow.Resolved {
		f.notifier.Notify(notify.Info("Questions generated", "Interview questions have been created based on the provided information"))
	} else {
		f.notifier.Notify(notify.Destructive("Error", "Failed to generate interview questions. Please try again."))
		telemetry.Warn("generation.rejected", f.logFields(map[string]any{"error": res.Err}))
	}
	st := f.stateLocked()
	f.mu.Unlock()

	f.onChange(st)
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// Snapshot returns the state to persist. While generating it carries the
// output visible before the submit.
func (f *Flow) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Restore rehydrates a fresh flow from a snapshot; it never restores a
// pending generation.
func (f *Flow) Restore(st State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return flow.ErrClosed
	}
	if f.cycle.Generating() {
		return flow.ErrBusy
	}
	if st.Mode != "" {
		mode, err := flow.ParseMode(string(st.Mode))
		if err != nil {
			return err
		}
		f.mode = mode
	}
	f.manual = st.ManualJobSpec
	f.jobSpec.Restore(st.JobSpecFile)
	f.cv.Restore(st.CVFile)
	if len(st.Questions) > 0 {
		f.cycle.SetOutput(generation.CloneQuestions(st.Questions))
	} else {
		f.cycle.ClearOutput()
	}
	return nil
}

// Close tears the flow down and discards any pending generation.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.cycle.Abandon()
	f.mu.Unlock()
	f.life.Close()
}

func (f *Flow) Wait() {
	f.life.Wait()
}

func (f *Flow) update(op func() error) (State, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return State{}, flow.ErrClosed
	}
	if f.cycle.Generating() {
		st := f.stateLocked()
		f.mu.Unlock()
		return st, flow.ErrBusy
	}
	err := op()
	st := f.stateLocked()
	f.mu.Unlock()
	if err == nil {
		f.onChange(st)
	}
	return st, err
}

func (f *Flow) canSubmitLocked() bool {
	if f.mode == flow.ModeManual {
		return strings.TrimSpace(f.manual) != ""
	}
	return f.jobSpec.Selected() != nil && f.cv.Selected() != nil
}

func (f *Flow) logFields(extra map[string]any) map[string]any {
	out := map[string]any{"flow": generation.FlowInterview}
	for k, v := range f.fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
