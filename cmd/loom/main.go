package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Loom compiles declarative UI markup",
		Long: `Loom turns declarative widget markup with binding expressions into
running views: interpreted with hot reload during development, compiled
to plain Go construction code for production.`,
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}

	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newGenCommand())
	rootCmd.AddCommand(newDevCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
