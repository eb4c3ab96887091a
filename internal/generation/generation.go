// Package generation produces job specifications and interview questions.
// Backends are either the simulated stand-in or a chat-completion model.
package generation

import (
	"context"
	"errors"
	"fmt"

	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
)

// Flow names label metrics and spans.
const (
	FlowJobSpec   = "job_spec"
	FlowInterview = "interview"
)

// Question is one generated interview question. IDs are 1-based and stable.
type Question struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// JobSpecInput carries the job spec flow inputs at submit time.
type JobSpecInput struct {
	Mode         flow.Mode
	TemplateID   string
	Position     string
	Requirements string
	File         *fileslot.SelectedFile
}

// QuestionsInput carries the interview flow inputs at submit time.
type QuestionsInput struct {
	Mode        flow.Mode
	JobSpecText string
	JobSpecFile *fileslot.SelectedFile
	CVFile      *fileslot.SelectedFile
	CVText      string
}

// Backend produces generated content. Implementations must honour ctx.
type Backend interface {
	Name() string
	GenerateJobSpec(ctx context.Context, in JobSpecInput) (string, error)
	GenerateQuestions(ctx context.Context, in QuestionsInput) ([]Question, error)
}

// ErrNoFile is returned when an upload-mode generation has no file to work from.
var ErrNoFile = errors.New("no file selected")

// UploadedJobSpec is the job spec text produced for an uploaded document.
// Documents are never parsed, so only the name is reported.
func UploadedJobSpec(f *fileslot.SelectedFile) (string, error) {
	if f == nil {
		return "", ErrNoFile
	}
	return fmt.Sprintf("Uploaded job spec: %s", f.Name), nil
}

// CloneQuestions returns a copy of qs that callers may mutate.
func CloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}
