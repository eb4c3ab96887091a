// Package jobspec hosts the job specification flow: template or manual
// fields, or an uploaded document, turned into a job description.
package jobspec

import (
	"context"
	"errors"
	"fmt"
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

const fileLabel = "Or upload an existing job specification"

// ErrUnknownTemplate rejects template ids outside the catalog.
var ErrUnknownTemplate = errors.New("unknown template")

// Options configures a Flow.
type Options struct {
	Backend  generation.Backend
	Notifier notify.Notifier
	// OnChange receives the state after every accepted mutation and after a
	// generation settles. It runs without the flow lock held.
	OnChange func(State)
	// Fields are attached to log lines.
	Fields map[string]any
}

// Flow is one mounted job specification form.
type Flow struct {
	mu     sync.Mutex
	closed bool
	life   *flow.Lifetime
	cycle  flow.Cycle[string]

	mode         flow.Mode
	templateID   string
	position     string
	requirements string
	file         *fileslot.Slot

	backend  generation.Backend
	notifier notify.Notifier
	onChange func(State)
	fields   map[string]any
}

// New mounts a flow whose pending work is bound to parent.
func New(parent context.Context, opts Options) *Flow {
	f := &Flow{
		life:     flow.NewLifetime(parent),
		mode:     flow.ModeManual,
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
	f.file = fileslot.New(fileLabel, fileslot.DefaultAccept, f.fileChanged)
	return f
}

// SetMode switches between manual entry and upload. Fields of the other mode
// are kept.
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

// SelectTemplate records the template and overwrites the requirements with
// its canned text.
func (f *Flow) SelectTemplate(id string) (State, error) {
	tpl, ok := generation.LookupTemplate(id)
	if !ok {
		return f.State(), fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return f.update(func() error {
		f.templateID = tpl.ID
		f.requirements = tpl.Requirements
		return nil
	})
}

func (f *Flow) SetPosition(v string) (State, error) {
	return f.update(func() error {
		f.position = v
		return nil
	})
}

func (f *Flow) SetRequirements(v string) (State, error) {
	return f.update(func() error {
		f.requirements = v
		return nil
	})
}

// PickFile applies a file picker result; an empty result clears the file.
func (f *Flow) PickFile(files []fileslot.SelectedFile) (State, error) {
	return f.update(func() error {
		f.file.Pick(files)
		return nil
	})
}

// DropFile applies a drop; an empty drop changes nothing.
func (f *Flow) DropFile(files []fileslot.SelectedFile) (State, error) {
	return f.update(func() error {
		f.file.Drop(files)
		return nil
	})
}

// RemoveFile clears the uploaded file.
func (f *Flow) RemoveFile() (State, error) {
	return f.update(func() error {
		f.file.Remove()
		return nil
	})
}

// Drag forwards a drag indicator event to the file slot.
func (f *Flow) Drag(event fileslot.DragEvent) (State, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return State{}, flow.ErrClosed
	}
	err := f.file.Apply(event)
	st := f.stateLocked()
	f.mu.Unlock()
	return st, err
}

// fileChanged runs inside Slot calls made with f.mu held.
func (f *Flow) fileChanged(file *fileslot.SelectedFile) {
	if file == nil {
		return
	}
	f.cycle.ClearOutput()
	f.notifier.Notify(notify.Info("File uploaded", fmt.Sprintf("%s has been uploaded successfully", file.Name)))
}

// Submit starts a generation. The request context only contributes its span
// so the generation trace joins the request trace; the work itself is bound
// to the flow lifetime.
func (f *Flow) Submit(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return State{}, flow.ErrClosed
	}
	if f.cycle.Generating() {
		st := f.stateLocked()
		f.mu.Unlock()
		metrics.IncRejected(generation.FlowJobSpec, "busy")
		return st, flow.ErrBusy
	}
	if !f.canSubmitLocked() {
		f.notifier.Notify(notify.Destructive("Missing information", "Please fill in all required fields"))
		st := f.stateLocked()
		f.mu.Unlock()
		metrics.IncRejected(generation.FlowJobSpec, "missing_input")
		return st, flow.ErrMissingInput
	}

	token, err := f.cycle.Begin()
	if err != nil {
		st := f.stateLocked()
		f.mu.Unlock()
		return st, err
	}
	in := generation.JobSpecInput{
		Mode:         f.mode,
		TemplateID:   f.templateID,
		Position:     f.position,
		Requirements: f.requirements,
		File:         f.file.Selected(),
	}
	sc := trace.SpanContextFromContext(ctx)
	flow.Go(f.life, func(lctx context.Context) (string, error) {
		return f.backend.GenerateJobSpec(trace.ContextWithSpanContext(lctx, sc), in)
	}, func(res flow.Result[string]) {
		f.settle(token, res)
	})
	st := f.stateLocked()
	f.mu.Unlock()

	f.onChange(st)
	return st, nil
}

func (f *Flow) settle(token uint64, res flow.Result[string]) {
	f.mu.Lock()
	if f.closed || !f.cycle.Settle(token, res) {
		f.mu.Unlock()
		metrics.IncGenerationDiscarded(generation.FlowJobSpec)
		telemetry.Info("generation.discarded", f.logFields(nil))
		return
	}
	if res.State == flow.Resolved {
		f.notifier.Notify(notify.Info("Job specification generated", "Your job specification has been created successfully"))
	} else {
		f.notifier.Notify(notify.Destructive("Error", "Failed to generate job specification. Please try again."))
		telemetry.Warn("generation.rejected", f.logFields(map[string]any{"error": res.Err}))
	}
	st := f.stateLocked()
	f.mu.Unlock()

	f.onChange(st)
}

// State returns a snapshot of the flow.
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

// Restore rehydrates a fresh flow from a snapshot. A snapshot taken while
// generating restores as not generating: the pending work is lost.
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
	f.templateID = st.TemplateID
	f.position = st.Position
	f.requirements = st.Requirements
	f.file.Restore(st.File)
	if st.Output != "" {
		f.cycle.SetOutput(st.Output)
	} else {
		f.cycle.ClearOutput()
	}
	return nil
}

// Close tears the flow down. A pending generation is cancelled and its
// result discarded. Close is idempotent.
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

// Wait blocks until pending work has returned. Used after Close.
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
	if f.mode == flow.ModeUpload {
		return f.file.Selected() != nil
	}
	return strings.TrimSpace(f.position) != "" && strings.TrimSpace(f.requirements) != ""
}

func (f *Flow) logFields(extra map[string]any) map[string]any {
	out := map[string]any{"flow": generation.FlowJobSpec}
	for k, v := range f.fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
