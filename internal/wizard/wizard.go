// Package wizard collects evaluation project metadata interactively and
// renders a starter eval spec for bidpanel init.
package wizard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/scaffold"
)

// ProjectSpec holds all fields collected during the interactive wizard.
type ProjectSpec struct {
	Name         string
	Description  string
	Requirements string
	Vendors      []string
	Engine       string
	Model        string
}

var engineTypes = []string{"openai", "copilot-sdk", "mock"}

// RunSpecWizard collects project metadata. On a terminal it runs a huh form;
// piped input falls back to plain line-based prompts so scripted setup works.
// If initialName is non-empty, it pre-populates the name field.
func RunSpecWizard(in io.Reader, out io.Writer, initialName string) (*ProjectSpec, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return runForm(in, out, initialName)
	}
	return runLineReader(in, out, initialName)
}

func runForm(in io.Reader, out io.Writer, initialName string) (*ProjectSpec, error) {
	defaultEngine, defaultModel := scaffold.ReadProjectDefaults()

	var (
		name         = initialName
		description  string
		requirements string
		vendorsRaw   string
		engine       = defaultEngine
		model        = defaultModel
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("A kebab-case name for the evaluation project").
				Placeholder("erp-replacement").
				Value(&name).
				Validate(func(s string) error {
					return scaffold.ValidateName(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Description").
				Description("What is being procured?").
				Placeholder("Describe the project").
				Value(&description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("description is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Requirements summary").
				Description("One requirement per line").
				Value(&requirements),
			huh.NewInput().
				Title("Vendors").
				Description("Comma-separated vendor names").
				Placeholder("acme-corp, globex").
				Value(&vendorsRaw).
				Validate(func(s string) error {
					if len(splitAndTrim(s)) == 0 {
						return fmt.Errorf("at least one vendor is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Engine").
				Options(
					huh.NewOption("openai", "openai"),
					huh.NewOption("copilot-sdk", "copilot-sdk"),
					huh.NewOption("mock", "mock"),
				).
				Value(&engine),
			huh.NewInput().
				Title("Model").
				Value(&model),
		),
	).
		WithInput(in).
		WithOutput(out)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	return &ProjectSpec{
		Name:         strings.TrimSpace(name),
		Description:  strings.TrimSpace(description),
		Requirements: strings.TrimSpace(requirements),
		Vendors:      splitAndTrim(vendorsRaw),
		Engine:       engine,
		Model:        strings.TrimSpace(model),
	}, nil
}

func runLineReader(in io.Reader, out io.Writer, initialName string) (*ProjectSpec, error) {
	defaultEngine, defaultModel := scaffold.ReadProjectDefaults()
	scanner := bufio.NewScanner(in)

	prompt := func(label string) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("unexpected end of input")
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	name := initialName
	if name == "" {
		var err error
		name, err = prompt("Project name")
		if err != nil {
			return nil, err
		}
	}
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if err := scaffold.ValidateName(name); err != nil {
		return nil, err
	}

	description, err := prompt("Description")
	if err != nil {
		return nil, err
	}
	if description == "" {
		return nil, fmt.Errorf("description is required")
	}

	requirements, err := prompt("Requirements (semicolon-separated)")
	if err != nil {
		return nil, err
	}
	requirements = strings.Join(splitOn(requirements, ";"), "\n")

	vendorsRaw, err := prompt("Vendors (comma-separated)")
	if err != nil {
		return nil, err
	}
	vendors := splitAndTrim(vendorsRaw)
	if len(vendors) == 0 {
		return nil, fmt.Errorf("at least one vendor is required")
	}

	engine, err := prompt("Engine")
	if err != nil {
		return nil, err
	}
	if engine == "" {
		engine = defaultEngine
	}
	if !validEngine(engine) {
		return nil, fmt.Errorf("invalid engine type: %s", engine)
	}

	model, err := prompt("Model")
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultModel
	}

	return &ProjectSpec{
		Name:         name,
		Description:  description,
		Requirements: requirements,
		Vendors:      vendors,
		Engine:       engine,
		Model:        model,
	}, nil
}

func validEngine(engine string) bool {
	for _, e := range engineTypes {
		if e == engine {
			return true
		}
	}
	return false
}

// GenerateSpecYAML renders an eval.yaml from the collected fields. The output
// round-trips through models.LoadEvaluationSpec.
func GenerateSpecYAML(spec *ProjectSpec) (string, error) {
	eval := models.EvaluationSpec{
		SpecIdentity: models.SpecIdentity{
			Name:        spec.Name,
			Description: spec.Description,
		},
		Version:      "1.0",
		Requirements: spec.Requirements,
		Config: models.EngineConfig{
			EngineType: spec.Engine,
			ModelID:    spec.Model,
			TimeoutSec: 30,
		},
	}
	for _, v := range spec.Vendors {
		eval.Vendors = append(eval.Vendors, models.Vendor{
			Name:              v,
			TechnicalApproach: "Describe the vendor's proposed technical approach here.",
		})
	}

	data, err := yaml.Marshal(&eval)
	if err != nil {
		return "", fmt.Errorf("failed to render spec: %w", err)
	}
	return string(data), nil
}

// splitAndTrim splits a comma-separated string, trimming whitespace and
// dropping empties.
func splitAndTrim(s string) []string {
	return splitOn(s, ",")
}

func splitOn(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
