package jobspec

import (
	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
)

// Actions offered once a specification exists.
const (
	ActionSaveDraft        = "save-draft"
	ActionUseSpecification = "use-specification"
)

// PreviewKind says what the preview pane shows.
type PreviewKind string

const (
	PreviewEmpty    PreviewKind = "empty"
	PreviewDocument PreviewKind = "document"
	PreviewFile     PreviewKind = "file"
)

// State is the externally visible job spec flow state. It doubles as the
// snapshot persisted between requests.
type State struct {
	Mode         flow.Mode              `json:"mode"`
	TemplateID   string                 `json:"templateId,omitempty"`
	Position     string                 `json:"position"`
	Requirements string                 `json:"requirements"`
	File         *fileslot.SelectedFile `json:"file,omitempty"`
	FileView     fileslot.View          `json:"fileView"`
	Status       flow.Status            `json:"status"`
	Output       string                 `json:"output,omitempty"`
	LastError    string                 `json:"lastError,omitempty"`
	CanSubmit    bool                   `json:"canSubmit"`
	Preview      PreviewKind            `json:"preview"`
	Actions      []string               `json:"actions"`
}

func (f *Flow) stateLocked() State {
	output, hasOutput := f.cycle.Output()
	return f.viewLocked(output, hasOutput, f.cycle.Status())
}

// snapshotLocked is the state to persist. A pending generation cannot be
// resumed elsewhere, so it records the output that generation replaces.
func (f *Flow) snapshotLocked() State {
	output, hasOutput, status := f.cycle.Stable()
	return f.viewLocked(output, hasOutput, status)
}

func (f *Flow) viewLocked(output string, hasOutput bool, status flow.Status) State {
	file := f.file.Selected()
	st := State{
		Mode:         f.mode,
		TemplateID:   f.templateID,
		Position:     f.position,
		Requirements: f.requirements,
		File:         file,
		FileView:     f.file.View(),
		Status:       status,
		Output:       output,
		LastError:    f.cycle.LastError(),
		CanSubmit:    !f.cycle.Generating() && f.canSubmitLocked(),
		Preview:      PreviewEmpty,
		Actions:      []string{},
	}
	switch {
	case hasOutput:
		st.Preview = PreviewDocument
	case file != nil:
		st.Preview = PreviewFile
	}
	if hasOutput || file != nil {
		st.Actions = []string{ActionSaveDraft, ActionUseSpecification}
	}
	return st
}
