package interview

import (
	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/generation"
)

// Actions offered once questions exist.
const (
	ActionExport = "export"
	ActionSave   = "save"
)

// State is the externally visible interview flow state and its snapshot.
type State struct {
	Mode          flow.Mode              `json:"mode"`
	ManualJobSpec string                 `json:"manualJobSpec"`
	JobSpecFile   *fileslot.SelectedFile `json:"jobSpecFile,omitempty"`
	CVFile        *fileslot.SelectedFile `json:"cvFile,omitempty"`
	JobSpecView   fileslot.View          `json:"jobSpecView"`
	CVView        fileslot.View          `json:"cvView"`
	Status        flow.Status            `json:"status"`
	Questions     []generation.Question  `json:"questions"`
	LastError     string                 `json:"lastError,omitempty"`
	CanSubmit     bool                   `json:"canSubmit"`
	Actions       []string               `json:"actions"`
}

func (f *Flow) stateLocked() State {
	questions, _ := f.cycle.Output()
	return f.viewLocked(questions, f.cycle.Status())
}

// snapshotLocked keeps the questions a pending generation would replace.
func (f *Flow) snapshotLocked() State {
	questions, _, status := f.cycle.Stable()
	return f.viewLocked(questions, status)
}

func (f *Flow) viewLocked(questions []generation.Question, status flow.Status) State {
	st := State{
		Mode:          f.mode,
		ManualJobSpec: f.manual,
		JobSpecFile:   f.jobSpec.Selected(),
		CVFile:        f.cv.Selected(),
		JobSpecView:   f.jobSpec.View(),
		CVView:        f.cv.View(),
		Status:        status,
		Questions:     generation.CloneQuestions(questions),
		LastError:     f.cycle.LastError(),
		CanSubmit:     !f.cycle.Generating() && f.canSubmitLocked(),
		Actions:       []string{},
	}
	if st.Questions == nil {
		st.Questions = []generation.Question{}
	}
	if len(st.Questions) > 0 {
		st.Actions = []string{ActionExport, ActionSave}
	}
	return st
}
