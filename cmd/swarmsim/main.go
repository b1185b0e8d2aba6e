// Command swarmsim runs the shared agent habitat.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

func main() {
	root := &cobra.Command{
		Use:   "swarmsim",
		Short: "A shared habitat for autonomous agents with hybrid decision loops",
	}

	var (
		configPath string
		debug      bool
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the habitat, its agents, and the observation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			return runHabitat(cmd.Context(), configPath)
		},
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "swarmsim.yaml", "path to config file")
	runCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the swarmsim version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("swarmsim", version)
		},
	}

	root.AddCommand(runCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
