package generation

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/llm"
)

// ErrInvalidQuestions is returned when a model reply holds no usable questions.
var ErrInvalidQuestions = errors.New("invalid questions payload")

//go:embed schema/questions.json
var questionsSchemaJSON string

var questionsSchema = mustSchema(questionsSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile questions schema: %v", err))
	}
	return schema
}

// Model generates content with a chat-completion client. Uploaded documents
// are never parsed: upload-mode job specs report the file name, and
// upload-mode questions are prompted with the document names only.
type Model struct {
	org    string
	client llm.Client
}

// NewModel constructs a model-backed backend.
func NewModel(org string, client llm.Client) *Model {
	return &Model{org: org, client: client}
}

func (m *Model) Name() string { return m.client.Name() }

func (m *Model) GenerateJobSpec(ctx context.Context, in JobSpecInput) (string, error) {
	if in.Mode == flow.ModeUpload {
		return UploadedJobSpec(in.File)
	}
	req, err := llm.JobSpecRequest(m.org, in.Position, in.Requirements)
	if err != nil {
		return "", err
	}
	return m.client.Complete(ctx, req)
}

func (m *Model) GenerateQuestions(ctx context.Context, in QuestionsInput) ([]Question, error) {
	jobSpec, cv := questionContext(in)
	req, err := llm.QuestionsRequest(m.org, jobSpec, cv)
	if err != nil {
		return nil, err
	}
	raw, err := m.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseQuestions(raw)
}

func questionContext(in QuestionsInput) (jobSpec, cv string) {
	if in.Mode == flow.ModeManual {
		return in.JobSpecText, in.CVText
	}
	if in.JobSpecFile != nil {
		jobSpec = fmt.Sprintf("Job specification document: %s", in.JobSpecFile.Name)
	}
	if in.CVFile != nil {
		cv = fmt.Sprintf("Candidate CV document: %s", in.CVFile.Name)
	}
	if strings.TrimSpace(in.JobSpecText) != "" {
		jobSpec = in.JobSpecText
	}
	if strings.TrimSpace(in.CVText) != "" {
		cv = in.CVText
	}
	return jobSpec, cv
}

// ParseQuestions decodes a model reply that is either a JSON array of
// questions or an object with a "questions" array. Markdown code fences are
// tolerated. The reply is checked against schema/questions.json before
// decoding. IDs are renumbered 1..n in reply order.
func ParseQuestions(raw string) ([]Question, error) {
	body := stripFence(raw)
	if err := validateQuestions(body); err != nil {
		return nil, err
	}

	var items []Question
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuestions, err)
		}
	} else {
		var wrapped struct {
			Questions []Question `json:"questions"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuestions, err)
		}
		items = wrapped.Questions
	}

	out := make([]Question, 0, len(items))
	for _, q := range items {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		category := strings.TrimSpace(q.Category)
		if category == "" {
			category = "General"
		}
		out = append(out, Question{ID: len(out) + 1, Text: text, Category: category})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidQuestions)
	}
	return out, nil
}

func validateQuestions(body string) error {
	result, err := questionsSchema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestions, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidQuestions, strings.Join(msgs, "; "))
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ Backend = (*Model)(nil)
