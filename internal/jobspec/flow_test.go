package jobspec

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/generation"
	"recruitment-backend/internal/notify"
)

type outcome struct {
	out string
	err error
}

type gatedBackend struct {
	release chan outcome
	calls   atomic.Int32
	mu      sync.Mutex
	last    generation.JobSpecInput
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{release: make(chan outcome, 1)}
}

func (g *gatedBackend) Name() string { return "gated" }

func (g *gatedBackend) GenerateJobSpec(ctx context.Context, in generation.JobSpecInput) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.last = in
	g.mu.Unlock()
	select {
	case r := <-g.release:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedBackend) GenerateQuestions(context.Context, generation.QuestionsInput) ([]generation.Question, error) {
	return nil, errors.New("unused")
}

type harness struct {
	flow    *Flow
	backend *gatedBackend
	queue   *notify.Queue
	changes atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{backend: newGatedBackend(), queue: notify.NewQueue(0)}
	h.flow = New(context.Background(), Options{
		Backend:  h.backend,
		Notifier: h.queue,
		OnChange: func(State) { h.changes.Add(1) },
	})
	t.Cleanup(func() {
		h.flow.Close()
		h.flow.Wait()
	})
	return h
}

func (h *harness) waitStatus(t *testing.T, want flow.Status) State {
	t.Helper()
	var st State
	require.Eventually(t, func() bool {
		st = h.flow.State()
		return st.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func (h *harness) fillManual(t *testing.T) {
	t.Helper()
	_, err := h.flow.SetPosition("Senior Engineer")
	require.NoError(t, err)
	_, err = h.flow.SetRequirements("X")
	require.NoError(t, err)
}

func TestDefaults(t *testing.T) {
	h := newHarness(t)
	st := h.flow.State()

	assert.Equal(t, flow.ModeManual, st.Mode)
	assert.Equal(t, flow.StatusIdle, st.Status)
	assert.False(t, st.CanSubmit)
	assert.Empty(t, st.Actions)
	assert.Equal(t, PreviewEmpty, st.Preview)
	assert.Equal(t, fileslot.ViewEmpty, st.FileView.Kind)
	assert.Equal(t, fileLabel, st.FileView.Label)
}

func TestSelectTemplateOverwritesRequirements(t *testing.T) {
	h := newHarness(t)

	for _, tpl := range generation.Templates() {
		_, err := h.flow.SetRequirements("my own edits")
		require.NoError(t, err)

		st, err := h.flow.SelectTemplate(tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, tpl.Requirements, st.Requirements)
		assert.Equal(t, tpl.ID, st.TemplateID)
	}

	_, err := h.flow.SelectTemplate("astronaut")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestSubmitRequiresPositionAndRequirements(t *testing.T) {
	h := newHarness(t)
	_, err := h.flow.SetPosition("Engineer")
	require.NoError(t, err)
	assert.False(t, h.flow.State().CanSubmit)

	st, err := h.flow.Submit(context.Background())
	assert.ErrorIs(t, err, flow.ErrMissingInput)
	assert.Equal(t, flow.StatusIdle, st.Status)
	assert.Zero(t, h.backend.calls.Load())

	notes := h.queue.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Missing information", notes[0].Title)
	assert.Equal(t, "Please fill in all required fields", notes[0].Description)
	assert.Equal(t, notify.VariantDestructive, notes[0].Variant)
}

func TestSubmitBlankFieldsAreMissing(t *testing.T) {
	h := newHarness(t)
	_, _ = h.flow.SetPosition("   ")
	_, _ = h.flow.SetRequirements("X")

	_, err := h.flow.Submit(context.Background())
	assert.ErrorIs(t, err, flow.ErrMissingInput)
}

func TestSubmitLifecycle(t *testing.T) {
	h := newHarness(t)
	h.fillManual(t)
	require.True(t, h.flow.State().CanSubmit)

	st, err := h.flow.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flow.StatusGenerating, st.Status)
	assert.Empty(t, st.Output)
	assert.False(t, st.CanSubmit)

	h.backend.release <- outcome{out: "# Senior Engineer - Job Specification"}
	st = h.waitStatus(t, flow.StatusGenerated)
	assert.Equal(t, "# Senior Engineer - Job Specification", st.Output)
	assert.True(t, st.CanSubmit)
	assert.Equal(t, PreviewDocument, st.Preview)
	assert.Equal(t, []string{ActionSaveDraft, ActionUseSpecification}, st.Actions)

	h.backend.mu.Lock()
	assert.Equal(t, "Senior Engineer", h.backend.last.Position)
	assert.Equal(t, "X", h.backend.last.Requirements)
	h.backend.mu.Unlock()

	notes := h.queue.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Job specification generated", notes[0].Title)
	assert.Equal(t, "Your job specification has been created successfully", notes[0].Description)
}

func TestInputsRejectedWhileGenerating(t *testing.T) {
	h := newHarness(t)
	h.fillManual(t)
	_, err := h.flow.Submit(context.Background())
	require.NoError(t, err)

	_, err = h.flow.Submit(context.Background())
	assert.ErrorIs(t, err, flow.ErrBusy)
	_, err = h.flow.SetPosition("other")
	assert.ErrorIs(t, err, flow.ErrBusy)
	_, err = h.flow.SelectTemplate("ux-designer")
	assert.ErrorIs(t, err, flow.ErrBusy)
	_, err = h.flow.PickFile([]fileslot.SelectedFile{{Name: "a.pdf"}})
	assert.ErrorIs(t, err, flow.ErrBusy)
	_, err = h.flow.SetMode("upload")
	assert.ErrorIs(t, err, flow.ErrBusy)
	assert.Equal(t, int32(1), h.backend.calls.Load())

	h.backend.release <- outcome{out: "done"}
	st := h.waitStatus(t, flow.StatusGenerated)
	assert.Equal(t, "Senior Engineer", st.Position)
}

func TestFailureRestoresPriorOutput(t *testing.T) {
	h := newHarness(t)
	h.fillManual(t)

	_, err := h.flow.Submit(context.Background())
	require.NoError(t, err)
	h.backend.release <- outcome{out: "first"}
	h.waitStatus(t, flow.StatusGenerated)
	h.queue.Drain()

	_, err = h.flow.Submit(context.Background())
	require.NoError(t, err)
	h.backend.release <- outcome{err: errors.New("upstream down")}
	var st State
	require.Eventually(t, func() bool {
		st = h.flow.State()
		return st.Status != flow.StatusGenerating
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, flow.StatusGenerated, st.Status)
	assert.Equal(t, "first", st.Output)
	assert.Equal(t, "upstream down", st.LastError)
	assert.True(t, st.CanSubmit)

	notes := h.queue.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Error", notes[0].Title)
	assert.Equal(t, "Failed to generate job specification. Please try again.", notes[0].Description)
	assert.Equal(t, notify.VariantDestructive, notes[0].Variant)
}

func TestCloseDiscardsPendingGeneration(t *testing.T) {
	h := newHarness(t)
	h.fillManual(t)
	_, err := h.flow.Submit(context.Background())
	require.NoError(t, err)
	before := h.changes.Load()

	h.flow.Close()
	h.flow.Wait()

	assert.Equal(t, before, h.changes.Load())
	assert.Empty(t, h.queue.Drain())
	_, err = h.flow.SetPosition("x")
	assert.ErrorIs(t, err, flow.ErrClosed)
	_, err = h.flow.Submit(context.Background())
	assert.ErrorIs(t, err, flow.ErrClosed)
}

func TestUploadClearsOutputAndNotifies(t *testing.T) {
	h := newHarness(t)
	h.fillManual(t)
	_, err := h.flow.Submit(context.Background())
	require.NoError(t, err)
	h.backend.release <- outcome{out: "generated"}
	h.waitStatus(t, flow.StatusGenerated)
	h.queue.Drain()

	st, err := h.flow.DropFile([]fileslot.SelectedFile{{Name: "role.pdf", SizeBytes: 2048}})
	require.NoError(t, err)
	assert.Empty(t, st.Output)
	assert.Equal(t, flow.StatusIdle, st.Status)
	assert.Equal(t, PreviewFile, st.Preview)
	assert.Equal(t, []string{ActionSaveDraft, ActionUseSpecification}, st.Actions)
	assert.Equal(t, fileslot.ViewOccupied, st.FileView.Kind)

	notes := h.queue.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "File uploaded", notes[0].Title)
	assert.Equal(t, "role.pdf has been uploaded successfully", notes[0].Description)

	st, err = h.flow.RemoveFile()
	require.NoError(t, err)
	assert.Nil(t, st.File)
	assert.Empty(t, h.queue.Drain())
}

func TestModesKeepEachOthersFields(t *testing.T) {
	h := newHarness(t)
	h.fillManual(t)

	st, err := h.flow.SetMode("upload")
	require.NoError(t, err)
	assert.False(t, st.CanSubmit)
	assert.Equal(t, "Senior Engineer", st.Position)

	st, err = h.flow.PickFile([]fileslot.SelectedFile{{Name: "spec.docx"}})
	require.NoError(t, err)
	assert.True(t, st.CanSubmit)

	st, err = h.flow.SetMode("manual")
	require.NoError(t, err)
	require.NotNil(t, st.File)
	assert.Equal(t, "spec.docx", st.File.Name)

	_, err = h.flow.SetMode("telepathy")
	assert.ErrorIs(t, err, flow.ErrInvalidMode)
}

func TestUploadModeWithSimulatedBackend(t *testing.T) {
	queue := notify.NewQueue(0)
	f := New(context.Background(), Options{
		Backend:  generation.NewSimulated("Acme", 0, 0),
		Notifier: queue,
	})
	defer f.Close()

	_, err := f.SetMode("upload")
	require.NoError(t, err)
	_, err = f.PickFile([]fileslot.SelectedFile{{Name: "role.pdf"}})
	require.NoError(t, err)
	_, err = f.Submit(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.State().Status == flow.StatusGenerated
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "Uploaded job spec: role.pdf", f.State().Output)
}

func TestRequirementsReachDocumentVerbatim(t *testing.T) {
	f := New(context.Background(), Options{Backend: generation.NewSimulated("Acme", 0, 0)})
	defer f.Close()

	req := "    - Go\n    - Kubernetes\n"
	_, err := f.SetPosition("Platform Engineer")
	require.NoError(t, err)
	_, err = f.SetRequirements(req)
	require.NoError(t, err)
	_, err = f.Submit(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.State().Status == flow.StatusGenerated
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, f.State().Output, "## Requirements\n"+req)
}

func TestSnapshotWhileGeneratingKeepsPriorOutput(t *testing.T) {
	h := newHarness(t)
	h.fillManual(t)

	_, err := h.flow.Submit(context.Background())
	require.NoError(t, err)
	snap := h.flow.Snapshot()
	assert.Equal(t, flow.StatusIdle, snap.Status)
	assert.Empty(t, snap.Output)

	h.backend.release <- outcome{out: "first"}
	h.waitStatus(t, flow.StatusGenerated)

	st, err := h.flow.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flow.StatusGenerating, st.Status)
	assert.Empty(t, st.Output)

	snap = h.flow.Snapshot()
	assert.Equal(t, flow.StatusGenerated, snap.Status)
	assert.Equal(t, "first", snap.Output)
	assert.Equal(t, PreviewDocument, snap.Preview)
	assert.Equal(t, "Senior Engineer", snap.Position)
}

func TestRestore(t *testing.T) {
	h := newHarness(t)

	err := h.flow.Restore(State{
		Mode:         flow.ModeUpload,
		TemplateID:   "data-scientist",
		Position:     "Analyst",
		Requirements: "SQL",
		File:         &fileslot.SelectedFile{Name: "a.pdf", SizeBytes: 1},
		Status:       flow.StatusGenerating,
		Output:       "",
	})
	require.NoError(t, err)

	st := h.flow.State()
	assert.Equal(t, flow.ModeUpload, st.Mode)
	assert.Equal(t, flow.StatusIdle, st.Status)
	assert.Equal(t, "a.pdf", st.File.Name)
	assert.True(t, st.CanSubmit)
	assert.Empty(t, h.queue.Drain())

	require.NoError(t, h.flow.Restore(State{Mode: flow.ModeManual, Output: "doc"}))
	st = h.flow.State()
	assert.Equal(t, flow.StatusGenerated, st.Status)
	assert.Equal(t, "doc", st.Output)
}
