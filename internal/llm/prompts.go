package llm

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

var (
	//go:embed prompts/job_spec.txt
	jobSpecPrompt string
	//go:embed prompts/interview_questions.txt
	questionsPrompt string

	jobSpecTmpl   = template.Must(template.New("job_spec").Parse(jobSpecPrompt))
	questionsTmpl = template.Must(template.New("interview_questions").Parse(questionsPrompt))
)

const (
	jobSpecSystem   = "You are a professional HR assistant specializing in creating detailed job specifications for %s."
	questionsSystem = "You are a professional HR assistant specializing in creating tailored interview questions for %s."

	defaultTemperature = float32(0.7)
	defaultMaxTokens   = 1000
)

// QuestionCategories lists the categories a model may assign to a question.
var QuestionCategories = []string{
	"Technical", "Experience", "Methodology", "Culture Fit", "Professional Development",
	"Adaptability", "Communication", "Problem Solving", "Process", "Career Planning",
}

// JobSpecRequest builds the completion request for a markdown job specification.
func JobSpecRequest(org, position, requirements string) (Request, error) {
	user, err := render(jobSpecTmpl, map[string]string{
		"Position":     strings.TrimSpace(position),
		"Requirements": strings.TrimSpace(requirements),
	})
	if err != nil {
		return Request{}, err
	}
	return newRequest(fmt.Sprintf(jobSpecSystem, org), user, false), nil
}

// QuestionsRequest builds the completion request for ten interview questions.
// An empty cvText asks the model to focus on the job requirements.
func QuestionsRequest(org, jobSpec, cvText string) (Request, error) {
	user, err := render(questionsTmpl, map[string]any{
		"JobSpec":    strings.TrimSpace(jobSpec),
		"CVText":     strings.TrimSpace(cvText),
		"Categories": strings.Join(QuestionCategories, ", "),
	})
	if err != nil {
		return Request{}, err
	}
	return newRequest(fmt.Sprintf(questionsSystem, org), user, true), nil
}

func newRequest(system, user string, asJSON bool) Request {
	temp := defaultTemperature
	return Request{
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		JSON:        asJSON,
		Temperature: &temp,
		MaxTokens:   defaultMaxTokens,
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
