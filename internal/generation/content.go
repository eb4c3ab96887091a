package generation

import (
	"fmt"
	"strings"
)

const jobSpecDocument = `# %[1]s - Job Specification

## Overview
We are looking for an exceptional %[1]s to join our team at %[3]s. The ideal candidate will bring a wealth of experience and innovative thinking to help drive our business forward.

## Requirements
%[2]s

## Responsibilities
- Drive innovation and excellence in our products and services
- Collaborate with cross-functional teams to deliver high-quality solutions
- Contribute to the strategic vision and roadmap
- Mentor junior team members and foster a culture of learning

## Qualifications
- Bachelor's degree in a relevant field
- 3+ years of experience in a similar role
- Strong communication and interpersonal skills
- Ability to work in a fast-paced, dynamic environment

## Benefits
- Competitive salary and bonus structure
- Comprehensive health and retirement benefits
- Professional development opportunities
- Flexible working arrangements
`

// RenderJobSpec renders the static job specification document. Position and
// requirements are interpolated verbatim; the remaining sections are fixed.
func RenderJobSpec(org, position, requirements string) string {
	return fmt.Sprintf(jobSpecDocument, position, requirements, org)
}

// QuestionCatalog returns the fixed ten-question catalog.
func QuestionCatalog(org string) []Question {
	return []Question{
		{ID: 1, Text: "Tell me about your experience with TypeScript and React.", Category: "Technical"},
		{ID: 2, Text: "Describe a challenging project you worked on and how you overcame the obstacles.", Category: "Experience"},
		{ID: 3, Text: "How do you approach testing in your development workflow?", Category: "Methodology"},
		{ID: 4, Text: fmt.Sprintf("What interests you about working at %s?", org), Category: "Culture Fit"},
		{ID: 5, Text: "How do you stay updated with the latest industry trends and technologies?", Category: "Professional Development"},
		{ID: 6, Text: "Describe a situation where you had to learn a new technology quickly.", Category: "Adaptability"},
		{ID: 7, Text: "How would you explain complex technical concepts to non-technical stakeholders?", Category: "Communication"},
		{ID: 8, Text: "What is your approach to debugging and troubleshooting issues?", Category: "Problem Solving"},
		{ID: 9, Text: "Describe your experience working in agile environments.", Category: "Process"},
		{ID: 10, Text: "What are your long-term career goals?", Category: "Career Planning"},
	}
}

// JobTemplate is one entry of the static role catalog.
type JobTemplate struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Requirements string `json:"requirements"`
}

var templates = []JobTemplate{
	{
		ID:           "software-engineer",
		Name:         "Software Engineer",
		Requirements: "Experience with React, TypeScript, and cloud technologies. Strong problem-solving skills and computer science fundamentals.",
	},
	{
		ID:           "data-scientist",
		Name:         "Data Scientist",
		Requirements: "Experience with Python, data analysis, machine learning, and statistical modeling. Knowledge of data visualization tools.",
	},
	{
		ID:           "product-manager",
		Name:         "Product Manager",
		Requirements: "Experience in product management, agile methodologies, and stakeholder management. Strong analytical and communication skills.",
	},
	{
		ID:           "ux-designer",
		Name:         "UX Designer",
		Requirements: "Experience with UX/UI design tools, user research, wireframing, and prototyping. Strong portfolio demonstrating design thinking.",
	},
	{
		ID:           "financial-analyst",
		Name:         "Financial Analyst",
		Requirements: "Experience in financial analysis, modeling, and forecasting. Knowledge of financial markets and investment products.",
	},
}

// Templates returns a copy of the role catalog in display order.
func Templates() []JobTemplate {
	out := make([]JobTemplate, len(templates))
	copy(out, templates)
	return out
}

// LookupTemplate finds a template by id.
func LookupTemplate(id string) (JobTemplate, bool) {
	id = strings.TrimSpace(id)
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return JobTemplate{}, false
}
