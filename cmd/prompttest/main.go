package main

// Run a single generation against the configured backend:
//   go run ./cmd/prompttest -kind job-spec -template software-engineer -position "Senior Engineer"
//   go run ./cmd/prompttest -kind questions -job-spec role.md -cv cv.txt -backend azure
// -print-prompt renders the chat request without calling a provider.

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"recruitment-backend/internal/bootstrap"
	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/generation"
	"recruitment-backend/internal/llm"
	"recruitment-backend/internal/shared/config"
	"recruitment-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	kind := flag.String("kind", "job-spec", "What to generate: job-spec or questions")
	templateID := flag.String("template", "", "Job template id; fills requirements when -requirements is empty")
	position := flag.String("position", "", "Position title for job-spec")
	requirements := flag.String("requirements", "", "Requirements for job-spec")
	jobSpecPath := flag.String("job-spec", "", "Path to a job specification text file for questions")
	cvPath := flag.String("cv", "", "Path to a CV text file for questions (optional)")
	backend := flag.String("backend", cfg.GenerationBackend, "Generation backend: simulated, openai, azure or gemini")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	printPrompt := flag.Bool("print-prompt", false, "Print the rendered prompt and exit")
	flag.Parse()

	telemetry.Configure("warn", "console")
	defer telemetry.Sync()

	cfg.GenerationBackend = strings.ToLower(strings.TrimSpace(*backend))
	cfg.LLMModel = *model
	ctx := context.Background()

	switch strings.TrimSpace(*kind) {
	case "job-spec":
		in, err := jobSpecInput(*templateID, *position, *requirements)
		if err != nil {
			exitErr(err.Error())
		}
		if *printPrompt {
			req, err := llm.JobSpecRequest(cfg.OrganizationName, in.Position, in.Requirements)
			if err != nil {
				exitErr(err.Error())
			}
			writePrompt(req)
			return
		}
		b := mustBackend(ctx, cfg)
		text, err := b.GenerateJobSpec(ctx, in)
		if err != nil {
			exitErr(fmt.Sprintf("generate job spec: %v", err))
		}
		writeOut([]byte(text))

	case "questions":
		in, err := questionsInput(*jobSpecPath, *cvPath)
		if err != nil {
			exitErr(err.Error())
		}
		if *printPrompt {
			req, err := llm.QuestionsRequest(cfg.OrganizationName, in.JobSpecText, in.CVText)
			if err != nil {
				exitErr(err.Error())
			}
			writePrompt(req)
			return
		}
		b := mustBackend(ctx, cfg)
		questions, err := b.GenerateQuestions(ctx, in)
		if err != nil {
			exitErr(fmt.Sprintf("generate questions: %v", err))
		}
		pretty, err := json.MarshalIndent(questions, "", "  ")
		if err != nil {
			exitErr(fmt.Sprintf("format json: %v", err))
		}
		writeOut(pretty)

	default:
		exitErr(fmt.Sprintf("unsupported kind: %s", *kind))
	}
}

func jobSpecInput(templateID, position, requirements string) (generation.JobSpecInput, error) {
	in := generation.JobSpecInput{
		Mode:         flow.ModeManual,
		TemplateID:   strings.TrimSpace(templateID),
		Position:     strings.TrimSpace(position),
		Requirements: strings.TrimSpace(requirements),
	}
	if in.TemplateID != "" {
		tpl, ok := generation.LookupTemplate(in.TemplateID)
		if !ok {
			return in, fmt.Errorf("unknown template: %s", in.TemplateID)
		}
		if in.Requirements == "" {
			in.Requirements = tpl.Requirements
		}
		if in.Position == "" {
			in.Position = tpl.Name
		}
	}
	if in.Position == "" || in.Requirements == "" {
		return in, fmt.Errorf("position and requirements are required (or pass -template)")
	}
	return in, nil
}

func questionsInput(jobSpecPath, cvPath string) (generation.QuestionsInput, error) {
	in := generation.QuestionsInput{Mode: flow.ModeManual}
	if strings.TrimSpace(jobSpecPath) == "" {
		return in, fmt.Errorf("job-spec path is required")
	}
	data, err := os.ReadFile(jobSpecPath)
	if err != nil {
		return in, fmt.Errorf("read job spec: %w", err)
	}
	in.JobSpecText = strings.TrimSpace(string(data))
	if strings.TrimSpace(cvPath) != "" {
		data, err := os.ReadFile(cvPath)
		if err != nil {
			return in, fmt.Errorf("read cv: %w", err)
		}
		in.CVText = strings.TrimSpace(string(data))
	}
	return in, nil
}

func mustBackend(ctx context.Context, cfg config.Config) generation.Backend {
	b, _, err := bootstrap.BuildBackend(ctx, cfg)
	if err != nil {
		exitErr(err.Error())
	}
	if cfg.GenerationBackend != "simulated" && b.Name() == "simulated" {
		fmt.Fprintln(os.Stderr, "warning: provider credentials missing; using simulated backend")
	}
	return generation.Instrument(b, cfg.GenerationTimeout)
}

func writePrompt(req llm.Request) {
	fmt.Printf("--- system ---\n%s\n\n--- user ---\n%s\n", req.System(), req.User())
}

func writeOut(b []byte) {
	if _, err := os.Stdout.Write(b); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(b) == 0 || b[len(b)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
