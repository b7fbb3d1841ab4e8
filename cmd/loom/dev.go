package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loomui/loom/cmd/loom/internal/project"
	"github.com/loomui/loom/pkg/interp"
	"github.com/loomui/loom/pkg/live"
	"github.com/loomui/loom/pkg/plan"
	"github.com/loomui/loom/pkg/runtime"
	"github.com/loomui/loom/pkg/shared"
)

func newDevCommand() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Watch markup and hot-reload a running view",
		Long: `Dev runs the project's view under the interpreter, watches its markup
for edits, and swaps clean trees in without restarting or losing state.
Connected tooling receives reload and diagnostics pushes over a
websocket at /live.`,
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
				// Hot reload swaps over a running clean view; there is no
				// previous tree to keep serving here, so a broken view is
				// fatal at startup.
				fmt.Println(errorStyle.Render(res.cfg.View))
				printDiagnostics(diags)
				return fmt.Errorf("fix the view before starting dev mode")
			}

			ctx, err := shared.New(res.model, nil)
			if err != nil {
				return err
			}

			view := runtime.NewView(interp.New(tree, ctx.Handle(), res.reg), res.reg, func(p *plan.Node) {
				log.Printf("[dev] rendered %d widget(s)", countWidgets(p))
			})
			view.Start()
			defer view.Stop()

			server := live.NewServer()
			reloader := live.NewReloader(res.resolver, server)
			reloader.Register(res.cfg.View, view)

			watcher, err := live.NewWatcher(reloader.HandleChanges)
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Watch(filepath.Dir(res.cfg.View)); err != nil {
				return err
			}
			watcher.Start()

			mux := http.NewServeMux()
			mux.HandleFunc("/live", server.HandleWebSocket)
			go func() {
				if err := http.ListenAndServe(addr, mux); err != nil {
					log.Printf("[dev] server: %v", err)
				}
			}()

			fmt.Printf("%s watching %s\n", successStyle.Render("dev"), res.cfg.View)
			fmt.Printf("%s\n", mutedStyle.Render("websocket on "+addr+"/live, ctrl-c to stop"))

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", project.DefaultFile, "project file")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7316", "dev server listen address")
	return cmd
}

func countWidgets(p *plan.Node) int {
	n := 1
	for i := range p.Kids {
		n += countWidgets(&p.Kids[i])
	}
	return n
}
