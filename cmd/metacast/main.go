// Package main provides the metacast binary entry point. Metacast resolves
// sparse item metadata into complete distribution records using a cascading
// configuration hierarchy and a pluggable catalog of field strategies.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "metacast"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	app := &appOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Metadata field-resolution engine for distribution records",
		Long: `Metacast computes every field of a distribution record from a sparse item
record and a cascading configuration hierarchy (global defaults, publisher,
imprint, item, caller overrides).

Fields are populated by a pluggable catalog of strategies: verbatim copy,
derived values, configured defaults, conditionals, date arithmetic, and a
best-effort external completion service with deterministic fallbacks.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&app.configRoot, "config-root", "", "Configuration hierarchy root (auto-detected if empty)")
	cmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(resolveCmd(app))
	cmd.AddCommand(batchCmd(app))
	cmd.AddCommand(validateCmd(app))
	cmd.AddCommand(configCmd(app))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}
