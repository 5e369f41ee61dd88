package task

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/internal/browseragent"
	"github.com/BaSui01/browseruse/internal/pool"
	"github.com/BaSui01/browseruse/internal/registry"
	"github.com/BaSui01/browseruse/types"
)

// stubRunner records the requests it receives and returns a canned result.
type stubRunner struct {
	mu       sync.Mutex
	requests []browseragent.Request
	result   string
	err      error
	block    chan struct{} // when set, Run waits until closed
}

func (r *stubRunner) Run(_ context.Context, req browseragent.Request) (string, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	return r.result, r.err
}

func (r *stubRunner) lastRequest() browseragent.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return browseragent.Request{}
	}
	return r.requests[len(r.requests)-1]
}

func newTestDispatcher(t *testing.T, runner browseragent.Runner, dir string) (*Dispatcher, registry.Store) {
	t.Helper()
	store := registry.NewMemoryStore()
	p := pool.New(pool.Config{MaxWorkers: 2, QueueSize: 2})
	t.Cleanup(func() { p.Close() })
	return New(runner, store, p, nil, dir, zap.NewNop()), store
}

func waitForTerminal(t *testing.T, d *Dispatcher, id string) types.TaskRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := d.Status(context.Background(), id)
		require.NoError(t, err)
		if rec.Status.Terminal() {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", id)
	return types.TaskRecord{}
}

func TestDispatchCompletesTask(t *testing.T) {
	runner := &stubRunner{result: "found 3 results"}
	d, _ := newTestDispatcher(t, runner, "")

	id, err := d.Dispatch(context.Background(), browseragent.Request{Task: "search for cats"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "task_"))

	rec := waitForTerminal(t, d, id)
	assert.Equal(t, types.TaskCompleted, rec.Status)
	assert.Equal(t, "found 3 results", rec.Result)
	assert.Empty(t, rec.Error)
	assert.NotZero(t, rec.Timestamp)
}

func TestDispatchPendingRecordVisibleImmediately(t *testing.T) {
	runner := &stubRunner{result: "ok", block: make(chan struct{})}
	d, _ := newTestDispatcher(t, runner, "")

	id, err := d.Dispatch(context.Background(), browseragent.Request{Task: "slow task"})
	require.NoError(t, err)

	// The runner is still blocked, so the record must be pending.
	rec, err := d.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.TaskPending, rec.Status)

	close(runner.block)
	rec = waitForTerminal(t, d, id)
	assert.Equal(t, types.TaskCompleted, rec.Status)
}

func TestDispatchRecordsFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("browser crashed")}
	d, _ := newTestDispatcher(t, runner, "")

	id, err := d.Dispatch(context.Background(), browseragent.Request{Task: "doomed"})
	require.NoError(t, err)

	rec := waitForTerminal(t, d, id)
	assert.Equal(t, types.TaskError, rec.Status)
	assert.Contains(t, rec.Error, "browser crashed")
	assert.Empty(t, rec.Result)
}

func TestDispatchQueueFull(t *testing.T) {
	runner := &stubRunner{result: "ok", block: make(chan struct{})}

	store := registry.NewMemoryStore()
	p := pool.New(pool.Config{MaxWorkers: 1, QueueSize: 1})
	defer p.Close()
	defer close(runner.block) // unblock before Close drains the queue
	d := New(runner, store, p, nil, "", zap.NewNop())

	_, err := d.Dispatch(context.Background(), browseragent.Request{Task: "first"})
	require.NoError(t, err)

	// Wait for the worker to pick up the first task so the second one
	// deterministically lands in the queue slot.
	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return len(runner.requests) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, err = d.Dispatch(context.Background(), browseragent.Request{Task: "second"})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), browseragent.Request{Task: "third"})
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskQueueFull, types.GetErrorCode(err))

	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 503, terr.HTTPStatus)
	assert.Equal(t, "too many concurrent tasks", terr.Message)

	// The rejected task must not leave a registry record behind.
	records, lerr := store.List(context.Background())
	require.NoError(t, lerr)
	assert.Len(t, records, 2)
}

func TestDispatchSetsConversationPath(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{result: "ok"}
	d, _ := newTestDispatcher(t, runner, dir)

	id, err := d.Dispatch(context.Background(), browseragent.Request{Task: "logged task"})
	require.NoError(t, err)
	waitForTerminal(t, d, id)

	assert.Equal(t, filepath.Join(dir, id+".json"), runner.lastRequest().ConversationPath)
}

func TestRunSync(t *testing.T) {
	runner := &stubRunner{result: "direct result"}
	d, store := newTestDispatcher(t, runner, "")

	result, err := d.RunSync(context.Background(), browseragent.Request{Task: "sync task"})
	require.NoError(t, err)
	assert.Equal(t, "direct result", result)

	// Sync runs bypass the registry.
	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStatusUnknownTask(t *testing.T) {
	d, _ := newTestDispatcher(t, &stubRunner{}, "")

	_, err := d.Status(context.Background(), "task_does_not_exist")
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskNotFound, types.GetErrorCode(err))

	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 404, terr.HTTPStatus)
	assert.Equal(t, "Task not found", terr.Message)
}

func TestUniqueTaskIDs(t *testing.T) {
	runner := &stubRunner{result: "ok"}
	d, _ := newTestDispatcher(t, runner, "")

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := d.Dispatch(context.Background(), browseragent.Request{Task: "n"})
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		waitForTerminal(t, d, id)
	}
}
