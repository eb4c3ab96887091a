package generation

import (
	"context"
	"time"

	"recruitment-backend/internal/flow"
)

// Default simulated delays.
const (
	DefaultJobSpecDelay   = 2 * time.Second
	DefaultInterviewDelay = 2500 * time.Millisecond
)

// Simulated waits a fixed delay and returns canned content that ignores the
// inputs, apart from interpolating the job spec position and requirements.
type Simulated struct {
	org            string
	jobSpecDelay   time.Duration
	interviewDelay time.Duration
}

// NewSimulated constructs the simulated backend. Negative delays become zero.
func NewSimulated(org string, jobSpecDelay, interviewDelay time.Duration) *Simulated {
	if jobSpecDelay < 0 {
		jobSpecDelay = 0
	}
	if interviewDelay < 0 {
		interviewDelay = 0
	}
	return &Simulated{org: org, jobSpecDelay: jobSpecDelay, interviewDelay: interviewDelay}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) GenerateJobSpec(ctx context.Context, in JobSpecInput) (string, error) {
	if err := wait(ctx, s.jobSpecDelay); err != nil {
		return "", err
	}
	if in.Mode == flow.ModeUpload {
		return UploadedJobSpec(in.File)
	}
	return RenderJobSpec(s.org, in.Position, in.Requirements), nil
}

func (s *Simulated) GenerateQuestions(ctx context.Context, _ QuestionsInput) ([]Question, error) {
	if err := wait(ctx, s.interviewDelay); err != nil {
		return nil, err
	}
	return QuestionCatalog(s.org), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Backend = (*Simulated)(nil)
