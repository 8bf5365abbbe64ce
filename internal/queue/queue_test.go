package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/region-annotator/internal/errors"
	"github.com/adverant/nexus/region-annotator/internal/logging"
	"github.com/adverant/nexus/region-annotator/internal/store"
)

type fakeEnqueuer struct {
	tasks  []*asynq.Task
	failAt int
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.failAt > 0 && len(f.tasks)+1 == f.failAt {
		return nil, stderrors.New("queue down")
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: strconv.Itoa(len(f.tasks)), Queue: "keli", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) payload(t *testing.T, i int) ScriptPayload {
	t.Helper()
	require.Less(t, i, len(f.tasks))
	var p ScriptPayload
	require.NoError(t, json.Unmarshal(f.tasks[i].Payload(), &p))
	return p
}

func newTestConn(t *testing.T) (*store.Conn, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	port, err := strconv.Atoi(m.Port())
	require.NoError(t, err)

	c, err := store.NewConn(context.Background(), store.Options{Host: m.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, m
}

func TestEnv(t *testing.T) {
	conn, m := newTestConn(t)

	env := Env(conn, "rec:1", -1)
	assert.Equal(t, map[string]string{
		"DB_HOST": m.Host(),
		"DB_PORT": m.Port(),
		"KEY":     "rec:1",
	}, env)

	env = Env(conn, "rec:1", 0)
	assert.Equal(t, "0", env["SEQUENCE"])
}

func TestDispatcher_Run(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q, "keli")

	env := map[string]string{"KEY": "rec:1", "DB_PORT": "6379"}
	require.NoError(t, d.Run(context.Background(), "keli img-crop $KEY", env))

	require.Len(t, q.tasks, 1)
	assert.Equal(t, TaskTypeScript, q.tasks[0].Type())

	p := q.payload(t, 0)
	assert.Equal(t, "keli img-crop $KEY", p.Script)
	assert.Equal(t, env, p.Env)
	assert.Equal(t, "rec:1", p.SourceKey)
}

func TestDispatcher_RunFailure(t *testing.T) {
	d := NewDispatcher(&fakeEnqueuer{failAt: 1}, "keli")

	err := d.Run(context.Background(), "script", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrorDispatchFailed))
}

func TestDispatcher_RunOnAll(t *testing.T) {
	conn, m := newTestConn(t)
	_, err := m.RPush(conn.SourcesKey("machinic:structured"), "rec:a", "rec:b")
	require.NoError(t, err)

	q := &fakeEnqueuer{}
	d := NewDispatcher(q, "keli")

	n, err := d.RunOnAll(context.Background(), conn, "machinic:structured", "s")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "rec:a", q.payload(t, 0).SourceKey)
	assert.Equal(t, "0", q.payload(t, 0).Env["SEQUENCE"])
	assert.Equal(t, "rec:b", q.payload(t, 1).SourceKey)
	assert.Equal(t, "1", q.payload(t, 1).Env["SEQUENCE"])
}

func TestDispatcher_RunOnAllStopsAtFailure(t *testing.T) {
	conn, m := newTestConn(t)
	_, err := m.RPush(conn.SourcesKey("ns"), "a", "b", "c")
	require.NoError(t, err)

	d := NewDispatcher(&fakeEnqueuer{failAt: 2}, "keli")
	n, err := d.RunOnAll(context.Background(), conn, "ns", "s")
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

type fakeExecutor struct {
	script string
	env    map[string]string
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, script string, env map[string]string) ([]byte, error) {
	f.script = script
	f.env = env
	return []byte("out"), f.err
}

func newTestConsumer(exec Executor) *Consumer {
	return &Consumer{
		executor: exec,
		config:   &ConsumerConfig{QueueName: "keli", Timeout: time.Second},
		logger:   logging.NewLogger("consumer"),
	}
}

func TestConsumer_HandleScript(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestConsumer(exec)

	payload, err := json.Marshal(ScriptPayload{Script: "keli x", Env: map[string]string{"KEY": "k"}, SourceKey: "k"})
	require.NoError(t, err)

	require.NoError(t, c.handleScript(context.Background(), asynq.NewTask(TaskTypeScript, payload)))
	assert.Equal(t, "keli x", exec.script)
	assert.Equal(t, "k", exec.env["KEY"])
}

func TestConsumer_HandleScriptErrors(t *testing.T) {
	c := newTestConsumer(&fakeExecutor{err: stderrors.New("exit status 1")})

	err := c.handleScript(context.Background(), asynq.NewTask(TaskTypeScript, []byte("{bad")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, err := json.Marshal(ScriptPayload{Script: "false"})
	require.NoError(t, err)
	err = c.handleScript(context.Background(), asynq.NewTask(TaskTypeScript, payload))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(&ConsumerConfig{QueueName: "keli", Executor: &fakeExecutor{}})
	assert.Error(t, err)

	_, err = NewConsumer(&ConsumerConfig{Redis: asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}, Executor: &fakeExecutor{}})
	assert.Error(t, err)

	_, err = NewConsumer(&ConsumerConfig{Redis: asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}, QueueName: "keli"})
	assert.Error(t, err)
}

func TestCommandExecutor(t *testing.T) {
	e := CommandExecutor{Command: "/bin/sh", Args: []string{"-c", `printf '%s|' "$KEY"; cat`}}

	out, err := e.Execute(context.Background(), "script body", map[string]string{"KEY": "rec:1"})
	require.NoError(t, err)
	assert.Equal(t, "rec:1|script body", string(out))

	_, err = CommandExecutor{}.Execute(context.Background(), "x", nil)
	assert.Error(t, err)
}
