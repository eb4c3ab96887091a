package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitment-backend/internal/fileslot"
	"recruitment-backend/internal/flow"
)

const org = "UBS Global Investment Center"

func TestSimulatedJobSpecInterpolatesInputs(t *testing.T) {
	s := NewSimulated(org, 0, 0)

	out, err := s.GenerateJobSpec(context.Background(), JobSpecInput{
		Mode:         flow.ModeManual,
		Position:     "Senior Engineer",
		Requirements: "X",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Senior Engineer - Job Specification\n"))
	assert.Contains(t, out, "## Requirements\nX\n")
	assert.Contains(t, out, "We are looking for an exceptional Senior Engineer to join our team at UBS Global Investment Center.")
	for _, header := range []string{"## Overview", "## Responsibilities", "## Qualifications", "## Benefits"} {
		assert.Contains(t, out, header)
	}
	assert.Contains(t, out, "- Mentor junior team members and foster a culture of learning")
	assert.Contains(t, out, "- Flexible working arrangements")
}

func TestSimulatedStaticSectionsIgnoreInputs(t *testing.T) {
	a := RenderJobSpec(org, "A", "one")
	b := RenderJobSpec(org, "B", "two")
	tail := func(s string) string { return s[strings.Index(s, "## Responsibilities"):] }
	assert.Equal(t, tail(a), tail(b))
}

func TestSimulatedUploadModeReportsFileName(t *testing.T) {
	s := NewSimulated(org, 0, 0)

	out, err := s.GenerateJobSpec(context.Background(), JobSpecInput{
		Mode: flow.ModeUpload,
		File: &fileslot.SelectedFile{Name: "role.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Uploaded job spec: role.pdf", out)

	_, err = s.GenerateJobSpec(context.Background(), JobSpecInput{Mode: flow.ModeUpload})
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestSimulatedQuestionsAreFixed(t *testing.T) {
	s := NewSimulated(org, 0, 0)

	a, err := s.GenerateQuestions(context.Background(), QuestionsInput{Mode: flow.ModeManual, JobSpecText: "anything"})
	require.NoError(t, err)
	b, err := s.GenerateQuestions(context.Background(), QuestionsInput{Mode: flow.ModeUpload})
	require.NoError(t, err)

	require.Len(t, a, 10)
	assert.Equal(t, a, b)
	for i, q := range a {
		assert.Equal(t, i+1, q.ID)
	}
	assert.Equal(t, Question{ID: 1, Text: "Tell me about your experience with TypeScript and React.", Category: "Technical"}, a[0])
	assert.Equal(t, "What interests you about working at UBS Global Investment Center?", a[3].Text)
	assert.Equal(t, Question{ID: 10, Text: "What are your long-term career goals?", Category: "Career Planning"}, a[9])

	a[0].Text = "mutated"
	c, _ := s.GenerateQuestions(context.Background(), QuestionsInput{})
	assert.NotEqual(t, "mutated", c[0].Text)
}

func TestSimulatedHonoursCancellation(t *testing.T) {
	s := NewSimulated(org, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.GenerateQuestions(ctx, QuestionsInput{})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("generation did not stop on cancellation")
	}
}

func TestSimulatedWaitsForDelay(t *testing.T) {
	s := NewSimulated(org, 30*time.Millisecond, 0)
	start := time.Now()
	_, err := s.GenerateJobSpec(context.Background(), JobSpecInput{Position: "p", Requirements: "r"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestTemplates(t *testing.T) {
	got := Templates()
	require.Len(t, got, 5)
	ids := make([]string, 0, len(got))
	for _, tpl := range got {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"software-engineer", "data-scientist", "product-manager", "ux-designer", "financial-analyst"}, ids)

	tpl, ok := LookupTemplate("data-scientist")
	require.True(t, ok)
	assert.Equal(t, "Experience with Python, data analysis, machine learning, and statistical modeling. Knowledge of data visualization tools.", tpl.Requirements)

	_, ok = LookupTemplate("astronaut")
	assert.False(t, ok)

	got[0].Name = "changed"
	assert.Equal(t, "Software Engineer", Templates()[0].Name)
}
