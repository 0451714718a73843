package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/evalbench/evalbench/internal/config"
	"github.com/evalbench/evalbench/internal/expander"
	"github.com/evalbench/evalbench/internal/questionbank"
	"github.com/evalbench/evalbench/internal/runner"
	"github.com/evalbench/evalbench/internal/scheduler"
	"github.com/evalbench/evalbench/internal/store"
	"github.com/evalbench/evalbench/internal/webapi"
	"github.com/evalbench/evalbench/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			components, err := buildComponents(cfg)
			if err != nil {
				return err
			}

			handlers := webapi.NewHandlers(components.store, components.scheduler, components.expander, components.registry)
			srv, err := webserver.New(webserver.Config{
				Port:           cfg.Server.Port,
				Handlers:       handlers,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return components.scheduler.Run(ctx)
			})
			group.Go(func() error {
				return srv.ListenAndServe(ctx)
			})

			err = group.Wait()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			components.registry.Shutdown(shutdownCtx)

			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a config file (default: walk up for .evalbench.yaml)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")

	return cmd
}

// components groups the wired service pieces shared by serve and run.
type components struct {
	bank      *questionbank.Bank
	registry  *runner.Registry
	store     *store.MemoryStore
	scheduler *scheduler.Scheduler
	expander  *expander.Expander
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(".")
}

func buildComponents(cfg *config.Config) (*components, error) {
	bank, err := questionbank.Load(cfg.Questions.Dir)
	if err != nil {
		return nil, err
	}

	registry, err := runner.NewRegistry(cfg.Models)
	if err != nil {
		return nil, err
	}

	taskStore := store.NewMemoryStore()
	sched := scheduler.New(taskStore, registry,
		scheduler.WithWorkers(cfg.Scheduler.Workers),
		scheduler.WithMaxRetries(*cfg.Scheduler.MaxRetries),
		scheduler.WithRetryBackoff(cfg.Scheduler.RetryBackoff()),
	)

	return &components{
		bank:      bank,
		registry:  registry,
		store:     taskStore,
		scheduler: sched,
		expander:  expander.New(bank, registry),
	}, nil
}
