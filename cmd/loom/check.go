package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomui/loom/cmd/loom/internal/project"
	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/markup"
	"github.com/loomui/loom/pkg/schema"
)

// resolution bundles the inputs shared by check, gen and dev.
type resolution struct {
	cfg      *project.Config
	model    *schema.Model
	reg      *schema.Registry
	resolver *ir.Resolver
}

func loadResolution(configPath string) (*resolution, error) {
	cfg, err := project.Load(configPath)
	if err != nil {
		return nil, err
	}
	table, err := cfg.BuildTable()
	if err != nil {
		return nil, err
	}
	model, err := cfg.BuildModel()
	if err != nil {
		return nil, err
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}
	return &resolution{
		cfg:      cfg,
		model:    model,
		reg:      reg,
		resolver: ir.NewResolver(table, model, reg),
	}, nil
}

// checkFile runs the full pipeline on one file and returns its diagnostics.
func (r *resolution) checkFile(file string) (*ir.Tree, []ir.Diagnostic, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, err
	}

	doc, err := markup.Parse(file, string(source))
	if err != nil {
		pos := markup.Pos{File: file}
		if se, ok := err.(*markup.SyntaxError); ok {
			pos = se.Pos
		}
		return nil, []ir.Diagnostic{{Kind: ir.BadSyntax, Pos: pos, Msg: err.Error()}}, nil
	}

	tree, diags := r.resolver.Resolve(doc)
	return tree, diags, nil
}

func newCheckCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Parse and resolve markup, reporting every diagnostic",
		Long: `Check runs each file through the parser and resolver and prints the
whole batch of diagnostics, not just the first. With no files it checks
the project's view.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadResolution(configPath)
			if err != nil {
				return err
			}

			files := args
			if len(files) == 0 {
				files = []string{res.cfg.View}
			}

			total := 0
			for _, file := range files {
				_, diags, err := res.checkFile(file)
				if err != nil {
					return err
				}
				if len(diags) == 0 {
					fmt.Printf("%s %s\n", successStyle.Render("ok"), file)
					continue
				}
				total += len(diags)
				fmt.Println(errorStyle.Render(file))
				printDiagnostics(diags)
			}

			if total > 0 {
				return fmt.Errorf("%d problem(s) found", total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", project.DefaultFile, "project file")
	return cmd
}
