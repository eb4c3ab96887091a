// Package flow holds the state-machine vocabulary shared by the generation
// flows. A Lifetime bounds pending work to the flow that started it.
package flow

import "errors"

// Status is the visible state of a generation flow.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusGenerated  Status = "generated"
)

// Mode selects how a flow receives its inputs.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeUpload Mode = "upload"
)

// ParseMode validates a mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeManual:
		return ModeManual, nil
	case ModeUpload:
		return ModeUpload, nil
	default:
		return "", ErrInvalidMode
	}
}

var (
	// ErrMissingInput rejects a submission before anything asynchronous starts.
	ErrMissingInput = errors.New("missing required input")
	// ErrBusy rejects submissions and input edits while a generation is pending.
	ErrBusy = errors.New("generation in progress")
	// ErrClosed is returned by every operation on a torn-down flow.
	ErrClosed = errors.New("flow closed")
	// ErrGenerationFailed wraps backend failures.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrInvalidMode rejects unknown input modes.
	ErrInvalidMode = errors.New("invalid mode")
)
