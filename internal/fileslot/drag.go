package fileslot

import (
	"errors"
	"strings"
)

// DragEvent is a drag indicator event reported by a client.
type DragEvent string

const (
	DragEventEnter DragEvent = "enter"
	DragEventOver  DragEvent = "over"
	DragEventLeave DragEvent = "leave"
)

var ErrInvalidDragEvent = errors.New("invalid drag event")

// ParseDragEvent validates a drag event name.
func ParseDragEvent(raw string) (DragEvent, error) {
	switch e := DragEvent(strings.ToLower(strings.TrimSpace(raw))); e {
	case DragEventEnter, DragEventOver, DragEventLeave:
		return e, nil
	default:
		return "", ErrInvalidDragEvent
	}
}

// Apply dispatches a drag event to the matching slot method.
func (s *Slot) Apply(e DragEvent) error {
	switch e {
	case DragEventEnter:
		s.DragEnter()
	case DragEventOver:
		s.DragOver()
	case DragEventLeave:
		s.DragLeave()
	default:
		return ErrInvalidDragEvent
	}
	return nil
}
