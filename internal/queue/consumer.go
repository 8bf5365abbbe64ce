/**
 * Script task consumer
 *
 * Consumes keli:script tasks from the asynq queue and runs each script through an
 * Executor. CommandExecutor pipes the script into the engine command with the task's
 * environment set, so the engine sees $KEY, $DB_HOST, $DB_PORT and $SEQUENCE.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/region-annotator/internal/logging"
)

// Executor runs one engine script
type Executor interface {
	Execute(ctx context.Context, script string, env map[string]string) ([]byte, error)
}

// CommandExecutor feeds the script to an engine command on stdin
type CommandExecutor struct {
	Command string
	Args    []string
}

// Execute runs the command with env added to the process environment
func (e CommandExecutor) Execute(ctx context.Context, script string, env map[string]string) ([]byte, error) {
	if e.Command == "" {
		return nil, fmt.Errorf("engine command is required")
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.Stdin = strings.NewReader(script)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	return cmd.CombinedOutput()
}

// Consumer handles script task consumption from the queue
type Consumer struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	executor Executor
	config   *ConsumerConfig
	logger   *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Redis       asynq.RedisClientOpt
	QueueName   string
	Concurrency int
	Executor    Executor
	Timeout     time.Duration // per script, default 5 minutes
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Executor == nil {
		return nil, fmt.Errorf("Executor is required")
	}

	logger := logging.NewLogger("consumer").With("queue", cfg.QueueName)

	server := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "error", err)
			}),
			Logger: asynqLogger{logger},
		},
	)

	consumer := &Consumer{
		server:   server,
		mux:      asynq.NewServeMux(),
		executor: cfg.Executor,
		config:   cfg,
		logger:   logger,
	}

	consumer.mux.HandleFunc(TaskTypeScript, consumer.handleScript)

	return consumer, nil
}

// Start starts processing in the background
func (c *Consumer) Start() error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency)
	return c.server.Start(c.mux)
}

// Stop waits for running scripts and stops the consumer
func (c *Consumer) Stop() {
	c.logger.Info("Stopping queue consumer")
	c.server.Shutdown()
}

func (c *Consumer) handleScript(ctx context.Context, task *asynq.Task) error {
	var payload ScriptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal script payload: %v: %w", err, asynq.SkipRetry)
	}

	timeout := 5 * time.Minute
	if c.config.Timeout > 0 {
		timeout = c.config.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := c.executor.Execute(runCtx, payload.Script, payload.Env)
	if err != nil {
		c.logger.Error("Script failed",
			"key", payload.SourceKey,
			"duration", time.Since(start),
			"output", string(out),
			"error", err)
		return fmt.Errorf("script failed for %s: %w", payload.SourceKey, err)
	}

	c.logger.Info("Script completed", "key", payload.SourceKey, "duration", time.Since(start))
	return nil
}

// asynqLogger routes asynq's server logs through the component logger
type asynqLogger struct {
	l *logging.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
