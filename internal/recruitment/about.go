package recruitment

import "fmt"

// About is the copy served for the About tab.
type About struct {
	Title string `json:"title"`
	// Integration names the configured chat-completion API, e.g. "Azure OpenAI".
	// Empty means generation is simulated.
	Integration string   `json:"integration,omitempty"`
	Backend     string   `json:"backend"`
	Simulated   bool     `json:"simulated"`
	Paragraphs  []string `json:"paragraphs"`
	Features    []string `json:"features"`
	GetStarted  string   `json:"getStarted"`
}

// NewAbout builds the About copy for org. It only claims an integration when
// one is configured.
func NewAbout(org, integration string) About {
	a := About{
		Title:       fmt.Sprintf("About %s Recruitment", org),
		Integration: integration,
		Paragraphs: []string{
			fmt.Sprintf("The %s Recruitment tool is designed to streamline the hiring process by generating detailed job specifications and tailored interview questions.", org),
		},
		Features: []string{
			"Generate job specifications from templates",
			"Upload existing job specifications or CVs",
			"Create tailored interview questions based on job requirements and candidate profiles",
		},
		GetStarted: `Select "Job Specifications" to create or upload job requirements, or choose "Interview Questions" to generate tailored questions for your candidates.`,
	}
	if integration == "" {
		a.Paragraphs = append(a.Paragraphs, "Generation is currently simulated: results are sample content produced after a short delay, not model output.")
	} else {
		a.Paragraphs = append(a.Paragraphs, fmt.Sprintf("This application connects to the %s chat completion API to provide intelligent suggestions and automate parts of the recruitment workflow, allowing HR professionals and hiring managers to focus on finding the best talent.", integration))
	}
	return a
}

func (a About) withBackend(name string) About {
	a.Backend = name
	a.Simulated = a.Integration == ""
	return a
}
