package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zereker/cvstore/internal/api/consumer"
	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/internal/server"
	"github.com/Zereker/cvstore/pkg/log"
)

func newEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print document events from Kafka until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := server.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !conf.Kafka.Enabled {
				return fmt.Errorf("kafka is not enabled in %s", configFile)
			}
			if err := log.Init(conf.Log); err != nil {
				return fmt.Errorf("failed to init log: %w", err)
			}

			c, err := consumer.NewConsumer(func(ctx context.Context, event domain.DocumentEvent) error {
				return printJSON(event)
			}, consumer.Config{Kafka: conf.Kafka})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			<-ctx.Done()
			return c.Stop()
		},
	}
}
