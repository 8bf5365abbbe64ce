package queue

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/region-annotator/internal/errors"
	"github.com/adverant/nexus/region-annotator/internal/logging"
	"github.com/adverant/nexus/region-annotator/internal/store"
)

// TaskTypeScript is the task type carrying an engine script
const TaskTypeScript = "keli:script"

// Engine environment variables. The engine substitutes them, the annotator never does.
const (
	EnvDBHost   = "DB_HOST"
	EnvDBPort   = "DB_PORT"
	EnvKey      = "KEY"
	EnvSequence = "SEQUENCE"
)

// ScriptPayload is the JSON payload of a script task
type ScriptPayload struct {
	Script    string            `json:"script"`
	Env       map[string]string `json:"env"`
	SourceKey string            `json:"source_key,omitempty"`
}

// Enqueuer is the part of asynq.Client the dispatcher needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher enqueues generated scripts for the external engine
type Dispatcher struct {
	client    Enqueuer
	queueName string
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher that enqueues on queueName
func NewDispatcher(client Enqueuer, queueName string) *Dispatcher {
	return &Dispatcher{
		client:    client,
		queueName: queueName,
		logger:    logging.NewLogger("dispatcher"),
	}
}

// Env builds the engine environment for key. A negative sequence leaves $SEQUENCE unset.
func Env(conn *store.Conn, key string, sequence int) map[string]string {
	env := map[string]string{
		EnvDBHost: conn.Host(),
		EnvDBPort: strconv.Itoa(conn.Port()),
		EnvKey:    key,
	}
	if sequence >= 0 {
		env[EnvSequence] = strconv.Itoa(sequence)
	}
	return env
}

// Run enqueues one script task
func (d *Dispatcher) Run(ctx context.Context, script string, env map[string]string) error {
	payload, err := json.Marshal(ScriptPayload{
		Script:    script,
		Env:       env,
		SourceKey: env[EnvKey],
	})
	if err != nil {
		return errors.NewDispatchFailedError(d.queueName, err)
	}

	// Failed scripts are not retried; the next edit produces a fresh script
	task := asynq.NewTask(TaskTypeScript, payload)
	info, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queueName), asynq.MaxRetry(0))
	if err != nil {
		return errors.NewDispatchFailedError(d.queueName, err)
	}

	d.logger.Debug("Script enqueued", "task_id", info.ID, "queue", info.Queue, "key", env[EnvKey])
	return nil
}

// RunOnAll enqueues script once for every record key in the sources list, with
// $SEQUENCE set to the record's position. It stops at the first failure and returns
// how many tasks were enqueued.
func (d *Dispatcher) RunOnAll(ctx context.Context, conn *store.Conn, namespace, script string) (int, error) {
	sources, err := conn.Sources(ctx, namespace)
	if err != nil {
		return 0, err
	}

	for i, key := range sources {
		if err := d.Run(ctx, script, Env(conn, key, i)); err != nil {
			return i, err
		}
	}

	d.logger.Info("Script enqueued for all sources", "count", len(sources), "namespace", namespace)
	return len(sources), nil
}
