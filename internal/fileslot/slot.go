package fileslot

import (
	"strings"
	"sync"
)

// ViewKind is the rendering state of a slot.
type ViewKind string

const (
	ViewEmpty    ViewKind = "empty"
	ViewOccupied ViewKind = "occupied"
)

// View is what a client renders for a slot.
type View struct {
	Kind       ViewKind `json:"kind"`
	Label      string   `json:"label"`
	Accept     string   `json:"accept,omitempty"`
	DragActive bool     `json:"dragActive"`
	Name       string   `json:"name,omitempty"`
	SizeBytes  int64    `json:"sizeBytes,omitempty"`
	SizeMB     string   `json:"sizeMB,omitempty"`
}

// Slot holds at most one selected file. The change callback runs after the
// slot lock is released, so it may call back into the slot.
type Slot struct {
	mu         sync.Mutex
	label      string
	accept     []string
	onChange   func(*SelectedFile)
	selected   *SelectedFile
	dragActive bool
}

// New constructs an empty slot. A nil accept list falls back to DefaultAccept.
func New(label string, accept []string, onChange func(*SelectedFile)) *Slot {
	if accept == nil {
		accept = DefaultAccept
	}
	if onChange == nil {
		onChange = func(*SelectedFile) {}
	}
	return &Slot{
		label:    label,
		accept:   append([]string(nil), accept...),
		onChange: onChange,
	}
}

// Label returns the slot label.
func (s *Slot) Label() string { return s.label }

// Accept returns a copy of the advisory accept list.
func (s *Slot) Accept() []string {
	return append([]string(nil), s.accept...)
}

func (s *Slot) DragEnter() { s.setDrag(true) }

func (s *Slot) DragOver() { s.setDrag(true) }

func (s *Slot) DragLeave() { s.setDrag(false) }

func (s *Slot) setDrag(v bool) {
	s.mu.Lock()
	s.dragActive = v
	s.mu.Unlock()
}

// DragActive reports whether a drag is hovering over the slot.
func (s *Slot) DragActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragActive
}

// Drop ends a drag. An empty drop leaves the selection alone and does not
// notify; otherwise the first file becomes the selection.
func (s *Slot) Drop(files []SelectedFile) {
	s.mu.Lock()
	s.dragActive = false
	if len(files) == 0 {
		s.mu.Unlock()
		return
	}
	f := s.normalize(files[0])
	s.selected = &f
	s.mu.Unlock()
	s.onChange(cloneFile(&f))
}

// Pick applies a picker result. A cancelled picker clears the selection.
func (s *Slot) Pick(files []SelectedFile) {
	s.mu.Lock()
	var out *SelectedFile
	if len(files) > 0 {
		f := s.normalize(files[0])
		s.selected = &f
		out = cloneFile(&f)
	} else {
		s.selected = nil
	}
	s.mu.Unlock()
	s.onChange(out)
}

// Remove clears the selection and notifies with nil.
func (s *Slot) Remove() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
	s.onChange(nil)
}

// Selected returns a copy of the current selection, or nil.
func (s *Slot) Selected() *SelectedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFile(s.selected)
}

// Restore sets the selection silently. Used when rehydrating a snapshot.
func (s *Slot) Restore(f *SelectedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = cloneFile(f)
	s.dragActive = false
}

// View renders the slot.
func (s *Slot) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{Label: s.label, DragActive: s.dragActive}
	if s.selected == nil {
		v.Kind = ViewEmpty
		v.Accept = strings.Join(s.accept, ",")
		return v
	}
	v.Kind = ViewOccupied
	v.Name = s.selected.Name
	v.SizeBytes = s.selected.SizeBytes
	v.SizeMB = s.selected.SizeMB()
	return v
}

func (s *Slot) normalize(f SelectedFile) SelectedFile {
	f.Accepted = Accepts(f.Name, s.accept)
	return f
}

func cloneFile(f *SelectedFile) *SelectedFile {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
