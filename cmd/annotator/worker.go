package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/queue"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run enqueued scripts through the engine command",
		Long: `Consumes script tasks from the queue and pipes each script into the configured
engine command (engine.command, engine.args) with DB_HOST, DB_PORT, KEY and SEQUENCE
set in its environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(cmd, opts, func(a *app) error {
				if a.cfg.EngineCommand == "" {
					return fmt.Errorf("engine.command is required to run scripts")
				}

				consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
					Redis:       a.redisOpt(),
					QueueName:   a.cfg.QueueName,
					Concurrency: a.cfg.WorkerConcurrency,
					Timeout:     a.cfg.ScriptTimeout,
					Executor: queue.CommandExecutor{
						Command: a.cfg.EngineCommand,
						Args:    a.cfg.EngineArgs,
					},
				})
				if err != nil {
					return err
				}

				if err := consumer.Start(); err != nil {
					return fmt.Errorf("failed to start queue consumer: %w", err)
				}
				a.logger.Info("Worker ready", "queue", a.cfg.QueueName, "concurrency", a.cfg.WorkerConcurrency)

				<-cmd.Context().Done()
				consumer.Stop()
				a.logger.Info("Shutdown complete")
				return nil
			})
		},
	}

	return cmd
}
