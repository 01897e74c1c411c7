package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bidpanel/bidpanel/internal/scaffold"
	"github.com/bidpanel/bidpanel/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new evaluation project",
		Long: `Initialize a new evaluation project with a starter spec.

Creates an eval.yaml spec file and a standards.yaml bundle with example
compliance standards and connector configuration.

Use --interactive to run a guided wizard that collects project metadata,
requirements, and the vendor list.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run guided project setup wizard")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	// Create the root directory if it doesn't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	specPath := filepath.Join(dir, "eval.yaml")
	if _, err := os.Stat(specPath); err == nil {
		return fmt.Errorf("%s already exists", specPath)
	}

	var specContent string
	if interactive {
		projectName := ""
		if dir != "." {
			projectName = filepath.Base(dir)
		}
		spec, err := wizard.RunSpecWizard(cmd.InOrStdin(), cmd.OutOrStdout(), projectName)
		if err != nil {
			return err
		}
		specContent, err = wizard.GenerateSpecYAML(spec)
		if err != nil {
			return err
		}
	} else {
		name := filepath.Base(dir)
		if dir == "." {
			if wd, err := os.Getwd(); err == nil {
				name = filepath.Base(wd)
			}
		}
		engine, model := scaffold.ReadProjectDefaults()
		specContent = scaffold.EvalYAML(name, engine, model)
	}

	if err := os.WriteFile(specPath, []byte(specContent), 0o644); err != nil {
		return fmt.Errorf("failed to write eval.yaml: %w", err)
	}

	standardsFile := filepath.Join(dir, "standards.yaml")
	if _, err := os.Stat(standardsFile); os.IsNotExist(err) {
		if err := os.WriteFile(standardsFile, []byte(scaffold.StandardsYAML()), 0o644); err != nil {
			return fmt.Errorf("failed to write standards.yaml: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized evaluation project in %s\n", dir)
	fmt.Fprintf(out, "  %s\n", specPath)
	fmt.Fprintf(out, "  %s\n", standardsFile)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Fill in the requirements and vendor proposals in eval.yaml")
	fmt.Fprintln(out, "  2. Review the compliance standards in standards.yaml")
	fmt.Fprintln(out, "  3. Run: bidpanel run eval.yaml --standards standards.yaml")

	return nil
}
