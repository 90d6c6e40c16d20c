package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zereker/cvstore/internal/server"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "cvstore",
		Short:         "CV ingestion and semantic search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/config.toml", "Path to config file")

	root.AddCommand(
		newServeCommand(),
		newIngestCommand(),
		newSearchCommand(),
		newListCommand(),
		newDeleteCommand(),
		newRecoverCommand(),
		newEventsCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := server.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			srv, err := server.NewServer(conf)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			defer func() { _ = srv.Shutdown() }()

			return srv.Start()
		},
	}
}
