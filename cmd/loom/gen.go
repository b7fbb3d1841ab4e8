package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomui/loom/cmd/loom/internal/project"
	"github.com/loomui/loom/pkg/codegen"
)

func newGenCommand() *cobra.Command {
	var (
		configPath string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Compile the project's markup to Go construction code",
		Long: `Gen resolves the project's view and emits a Go file with a typed model
loader, a Build function constructing the widget plan, and a Dispatch
function routing events. Any diagnostic is fatal; broken markup never
reaches a production build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadResolution(configPath)
			if err != nil {
				return err
			}

			tree, diags, err := res.checkFile(res.cfg.View)
			if err != nil {
				return err
			}
			if len(diags) > 0 {
				fmt.Println(errorStyle.Render(res.cfg.View))
				printDiagnostics(diags)
				return fmt.Errorf("%d problem(s); nothing generated", len(diags))
			}

			source, err := codegen.Generate(tree, res.model, codegen.Options{
				Package: res.cfg.Package,
				Name:    res.cfg.Name,
			})
			if err != nil {
				return err
			}

			target := out
			if target == "" {
				target = res.cfg.Out
			}
			if target == "" {
				target = strings.TrimSuffix(res.cfg.View, ".loom") + "_gen.go"
			}
			if err := os.WriteFile(target, source, 0o644); err != nil {
				return err
			}

			fmt.Printf("%s %s\n", successStyle.Render("wrote"), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", project.DefaultFile, "project file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (overrides project file)")
	return cmd
}
